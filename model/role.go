package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies what a participant is allowed to do on the chain.
// A wallet starts with RoleNone and self-declares exactly one role.
type Role uint8

const (
	RoleNone Role = iota
	RoleProducer
	RoleProcessor
	RoleWarehouse
	RoleTransporter
	RoleCustomer
)

var roleLabels = map[Role]string{
	RoleNone:        "none",
	RoleProducer:    "producer",
	RoleProcessor:   "processor",
	RoleWarehouse:   "warehouse",
	RoleTransporter: "transporter",
	RoleCustomer:    "customer",
}

func (r Role) String() string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	return "unknown"
}

func (r Role) Valid() bool {
	_, ok := roleLabels[r]
	return ok
}

// ParseRole maps a role label to its Role value. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for role, label := range roleLabels {
		if label == normalized {
			return role, nil
		}
	}
	return RoleNone, fmt.Errorf("unknown role %q", s)
}

// MarshalJSON renders the role as its label so payloads stay readable and
// independent of ordinal numbering.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	role, err := ParseRole(label)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// TransferRoute is an ordered (sender role, recipient role) pair.
type TransferRoute struct {
	From Role
	To   Role
}

// allowedTransferRoutes is the custody policy table. It is an explicit
// allow-list keyed by named variants so adding a role can never shift an
// unrelated entry.
var allowedTransferRoutes = map[TransferRoute]bool{
	{RoleProducer, RoleProcessor}:    true,
	{RoleProducer, RoleWarehouse}:    true,
	{RoleProducer, RoleTransporter}:  true,
	{RoleProcessor, RoleWarehouse}:   true,
	{RoleProcessor, RoleTransporter}: true,
	{RoleWarehouse, RoleProcessor}:   true,
	{RoleWarehouse, RoleTransporter}: true,
	{RoleTransporter, RoleProcessor}: true,
	{RoleTransporter, RoleWarehouse}: true,
	{RoleProcessor, RoleCustomer}:    true,
	{RoleWarehouse, RoleCustomer}:    true,
	{RoleTransporter, RoleCustomer}:  true,
}

// RouteAllowed reports whether custody may move from a sender with role from
// to a recipient with role to. Customers can receive but never initiate.
func RouteAllowed(from, to Role) bool {
	return allowedTransferRoutes[TransferRoute{From: from, To: to}]
}

// Roles returns every assignable role, RoleNone excluded.
func Roles() []Role {
	return []Role{RoleProducer, RoleProcessor, RoleWarehouse, RoleTransporter, RoleCustomer}
}
