package service

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// RecipientRule names one way of resolving recipients for an event.
type RecipientRule string

const (
	ruleAllAdmins     RecipientRule = "all_admins"
	ruleTicketOwner   RecipientRule = "ticket_owner"
	ruleAssignedStaff RecipientRule = "assigned_staff"
)

// Recipient is a resolved notification target.
type Recipient struct {
	UserID string
	Role   domain.Role
}

// fanoutMatrix is the role fan-out table: (event type, actor role) → rules.
// Missing entries mean the combination emits nothing. Kept as data so the
// whole table is testable without touching storage.
var fanoutMatrix = map[domain.NotificationType]map[domain.Role][]RecipientRule{
	domain.NotificationNewTicket: {
		domain.RoleStudent: {ruleAllAdmins},
	},
	domain.NotificationStatusChange: {
		domain.RoleStudent:   {ruleAllAdmins, ruleAssignedStaff},
		domain.RoleDisposisi: {ruleTicketOwner, ruleAllAdmins},
		domain.RoleAdmin:     {ruleTicketOwner, ruleAssignedStaff},
	},
	domain.NotificationPriorityChange: {
		// Informational to the owner only, even for admin-made changes.
		domain.RoleAdmin: {ruleTicketOwner},
	},
	domain.NotificationAssignment: {
		domain.RoleAdmin: {ruleAssignedStaff, ruleTicketOwner},
	},
	domain.NotificationFeedback: {
		domain.RoleStudent:   {ruleAllAdmins, ruleAssignedStaff},
		domain.RoleDisposisi: {ruleTicketOwner},
		domain.RoleAdmin:     {ruleTicketOwner},
	},
	domain.NotificationChatMessage: {
		domain.RoleStudent:   {ruleAllAdmins, ruleAssignedStaff},
		domain.RoleDisposisi: {ruleTicketOwner, ruleAllAdmins},
		domain.RoleAdmin:     {ruleTicketOwner, ruleAssignedStaff},
	},
}

// FanoutRules returns the recipient rules for an event/actor-role pair.
// An empty slice means no fan-out is defined for the combination.
func FanoutRules(event domain.NotificationType, actorRole domain.Role) []RecipientRule {
	byRole, ok := fanoutMatrix[event]
	if !ok {
		return nil
	}
	return byRole[actorRole]
}

// resolveRecipients expands rules into concrete users, deduplicated and with
// the acting user excluded. A rule that resolves to nobody is skipped
// silently; zero recipients is a valid outcome.
func resolveRecipients(ctx context.Context, users repository.UserRepository, event domain.NotificationType, ticket *domain.Ticket, actor domain.Actor) ([]Recipient, error) {
	rules := FanoutRules(event, actor.Role)
	if len(rules) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{})
	var recipients []Recipient
	add := func(userID string, role domain.Role) {
		if userID == "" || userID == actor.ID {
			return
		}
		if _, dup := seen[userID]; dup {
			return
		}
		seen[userID] = struct{}{}
		recipients = append(recipients, Recipient{UserID: userID, Role: role})
	}

	for _, rule := range rules {
		switch rule {
		case ruleAllAdmins:
			admins, err := users.ListByRole(ctx, domain.RoleAdmin)
			if err != nil {
				return nil, err
			}
			for _, admin := range admins {
				add(admin.ID, domain.RoleAdmin)
			}
		case ruleTicketOwner:
			if ticket.OwnerID != nil {
				add(*ticket.OwnerID, domain.RoleStudent)
			}
		case ruleAssignedStaff:
			if ticket.AssignedTo != nil {
				add(*ticket.AssignedTo, domain.RoleDisposisi)
			}
		}
	}
	return recipients, nil
}
