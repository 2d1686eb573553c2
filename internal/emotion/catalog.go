package emotion

// Type is the learner-facing emotion reported to callers. There are exactly four.
type Type string

const (
	TypeHappy      Type = "happy"
	TypeNeutral    Type = "neutral"
	TypeConfused   Type = "confused"
	TypeFrustrated Type = "frustrated"
)

// Valid reports whether t is one of the four external types
func (t Type) Valid() bool {
	switch t {
	case TypeHappy, TypeNeutral, TypeConfused, TypeFrustrated:
		return true
	}
	return false
}

// IsNegative reports whether the type signals a struggling learner
func (t Type) IsNegative() bool {
	return t == TypeConfused || t == TypeFrustrated
}

// State is one of the six internal candidates the rule engine votes on
type State string

const (
	StateConfident  State = "confident"
	StateNeutral    State = "neutral"
	StateHesitant   State = "hesitant"
	StateConfused   State = "confused"
	StateFrustrated State = "frustrated"
	StateAnxious    State = "anxious"
)

// States lists the internal states in tie-break order
var States = []State{
	StateConfident,
	StateNeutral,
	StateHesitant,
	StateConfused,
	StateFrustrated,
	StateAnxious,
}

// Profile is the display text bound to an internal state
type Profile struct {
	State          State    `json:"state"`
	Type           Type     `json:"type"`
	Label          string   `json:"label"`
	Tip            string   `json:"tip"`
	Encouragements []string `json:"encouragements"`
}

var profiles = map[State]Profile{
	StateConfident: {
		State: StateConfident, Type: TypeHappy, Label: "自信",
		Tip:            "状态很好，继续保持这个节奏。",
		Encouragements: []string{"你读得很稳。", "发音很清晰，继续。", "节奏和气息都不错。"},
	},
	StateNeutral: {
		State: StateNeutral, Type: TypeNeutral, Label: "平稳",
		Tip:            "继续专注，再来一遍会更自然。",
		Encouragements: []string{"不错，继续。", "整体稳定，继续练习。", "再来一遍会更好。"},
	},
	StateHesitant: {
		State: StateHesitant, Type: TypeConfused, Label: "犹豫",
		Tip:            "先慢一点，跟着示范读。",
		Encouragements: []string{"慢一点没关系。", "先听一遍，再跟读。", "你在进步，继续。"},
	},
	StateConfused: {
		State: StateConfused, Type: TypeConfused, Label: "困惑",
		Tip:            "把句子拆开读，一段一段来。",
		Encouragements: []string{"这个点我们拆开练。", "先稳住节奏。", "再试一次就会好很多。"},
	},
	StateFrustrated: {
		State: StateFrustrated, Type: TypeFrustrated, Label: "挫败",
		Tip:            "先放松，调整呼吸后再读。",
		Encouragements: []string{"别急，先缓一缓。", "这个难点很常见。", "你已经做得不错了。"},
	},
	StateAnxious: {
		State: StateAnxious, Type: TypeConfused, Label: "紧张",
		Tip:            "不赶时间，放慢语速会更准。",
		Encouragements: []string{"慢一点会更稳。", "放松肩膀和呼吸。", "你可以的，继续。"},
	},
}

// ProfileFor returns the profile of a state; unknown states fall back to neutral
func ProfileFor(state State) Profile {
	if p, ok := profiles[state]; ok {
		return p
	}
	return profiles[StateNeutral]
}

// StateForType picks the representative internal state of an external type
func StateForType(t Type) State {
	switch t {
	case TypeHappy:
		return StateConfident
	case TypeConfused:
		return StateConfused
	case TypeFrustrated:
		return StateFrustrated
	default:
		return StateNeutral
	}
}

// modelLabels maps open classifier labels into internal states
var modelLabels = map[string]State{
	"happy":    StateConfident,
	"sad":      StateFrustrated,
	"angry":    StateFrustrated,
	"fear":     StateAnxious,
	"surprise": StateNeutral,
	"neutral":  StateNeutral,
	"disgust":  StateConfused,
}

// StateForLabel maps a classifier label; unknown labels are neutral
func StateForLabel(label string) State {
	if s, ok := modelLabels[label]; ok {
		return s
	}
	return StateNeutral
}
