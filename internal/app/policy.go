package app

import "github.com/avlasov/Parley/internal/core"

// DeliveryAction decides what to do with a recipient whose send failed.
type DeliveryAction int

const (
	NoAction DeliveryAction = iota
	DropFrame
	KickMember
)

type DeliveryPolicy interface {
	OnSendFailure(room *core.Room, s *core.Session) DeliveryAction
}

// KickPolicy evicts any recipient whose connection rejects a frame: a dead
// or saturated peer must not linger in membership and stall later fan-outs.
type KickPolicy struct{}

func (KickPolicy) OnSendFailure(*core.Room, *core.Session) DeliveryAction {
	return KickMember
}
