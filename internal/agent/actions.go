package agent

import (
	"storefront-agent/internal/actionblock"
)

const (
	TypeUpdateStatus   = "update_status"
	TypeAssignDelivery = "assign_delivery"
	TypeSendEmail      = "send_email"
	TypeUpdateStock    = "update_stock"
	TypeCancelOrder    = "cancel_order"
)

// Action is one of the decoded action variants below.
type Action interface {
	actionType() string
}

type UpdateStatus struct {
	Order     string
	NewStatus string
}

type AssignDelivery struct {
	Order         string
	DeliveryBoy   string
	DeliveryPhone string
}

type SendEmail struct {
	Order string
}

type UpdateStock struct {
	Product  string
	NewValue string
}

type CancelOrder struct {
	Order string
}

// UnknownAction carries a type tag that no variant handles; an empty Type means the block had none.
type UnknownAction struct {
	Type string
}

func (UpdateStatus) actionType() string   { return TypeUpdateStatus }
func (AssignDelivery) actionType() string { return TypeAssignDelivery }
func (SendEmail) actionType() string      { return TypeSendEmail }
func (UpdateStock) actionType() string    { return TypeUpdateStock }
func (CancelOrder) actionType() string    { return TypeCancelOrder }
func (a UnknownAction) actionType() string {
	if a.Type == "" {
		return "none"
	}
	return a.Type
}

// Decode turns a parsed descriptor into its action variant.
func Decode(d actionblock.Descriptor) Action {
	lookup := d.Lookup()
	switch d.Type() {
	case TypeUpdateStatus:
		return UpdateStatus{Order: lookup, NewStatus: d.NewValue()}
	case TypeAssignDelivery:
		return AssignDelivery{Order: lookup, DeliveryBoy: d.NewValue(), DeliveryPhone: d.DeliveryPhone()}
	case TypeSendEmail:
		return SendEmail{Order: lookup}
	case TypeUpdateStock:
		product := d.ProductID()
		if product == "" {
			product = lookup
		}
		return UpdateStock{Product: product, NewValue: d.NewValue()}
	case TypeCancelOrder:
		return CancelOrder{Order: lookup}
	default:
		return UnknownAction{Type: d.Type()}
	}
}
