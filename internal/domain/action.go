package domain

import (
	"fmt"
	"strings"
)

// Action selects which view of the snapshot a request returns.
type Action string

const (
	ActionAll      Action = "all"
	ActionTrades   Action = "trades"
	ActionPools    Action = "pools"
	ActionLaunches Action = "launches"
	ActionFeatured Action = "featured"
)

// ParseAction parses a request action. Empty means ActionAll.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case "":
		return ActionAll, nil
	case ActionAll, ActionTrades, ActionPools, ActionLaunches, ActionFeatured:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}
