package game

// ControllerKind tags which variant of Controller is active.
type ControllerKind uint8

const (
	ControllerHuman ControllerKind = iota
	ControllerBot
)

func (k ControllerKind) String() string {
	if k == ControllerBot {
		return "bot"
	}
	return "human"
}

// Controller decides what a tank does each tick. A human controller is fed
// by network commands; a bot controller is driven by its behavior.
type Controller struct {
	Kind  ControllerKind
	Human *HumanInput
	Bot   *BotBehavior
}

// HumanInput holds the latest held-action state of a remote player.
type HumanInput struct {
	Holding bool
}

// HumanController returns a controller fed by network input.
func HumanController() Controller {
	return Controller{Kind: ControllerHuman, Human: &HumanInput{}}
}

// BotController returns a controller driven by behavior.
func BotController(behavior *BotBehavior) Controller {
	return Controller{Kind: ControllerBot, Bot: behavior}
}

// holding reports whether the controller is holding the bomb action.
func (c Controller) holding() bool {
	switch c.Kind {
	case ControllerBot:
		return c.Bot != nil && c.Bot.holding
	default:
		return c.Human != nil && c.Human.Holding
	}
}
