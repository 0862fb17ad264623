package health

import (
	"context"
	"errors"

	"waterwatch-hq/healthimpact/pkg/healthrules"
)

// Pinger is implemented by storage backends that can verify their
// connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RulesCheck fails until a rule set with at least one element is active.
func RulesCheck(rules func() *healthrules.Store) CheckFunc {
	return func(context.Context) error {
		store := rules()
		if store == nil {
			return errors.New("no rule set loaded")
		}
		if store.Len() == 0 {
			return errors.New("active rule set defines no elements")
		}
		return nil
	}
}

// PingCheck reports the result of p.Ping.
func PingCheck(p Pinger) CheckFunc {
	return p.Ping
}
