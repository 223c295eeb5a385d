package service

import (
	"context"
	"testing"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/token"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

var (
	admin1   = domain.User{ID: "admin-1", Name: "Admin One", Role: domain.RoleAdmin}
	admin2   = domain.User{ID: "admin-2", Name: "Admin Two", Role: domain.RoleAdmin}
	student1 = domain.User{ID: "student-1", Name: "Student One", Role: domain.RoleStudent}
	student2 = domain.User{ID: "student-2", Name: "Student Two", Role: domain.RoleStudent}
	staff1   = domain.User{ID: "staff-1", Name: "Staff One", Role: domain.RoleDisposisi}
)

func allUsers() []domain.User {
	return []domain.User{admin1, admin2, student1, student2, staff1}
}

func mustCreate(t *testing.T, h *harness, actor domain.Actor, anonymous bool) *domain.Ticket {
	t.Helper()
	ticket, err := h.lifecycle.Create(context.Background(), actor, CreateTicketInput{
		Title:       "Broken projector",
		Description: "The projector in room 204 does not power on.",
		CategoryID:  "cat-1",
		Anonymous:   anonymous,
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := apperrors.CodeOf(err); got != code {
		t.Fatalf("expected %s, got %s (%v)", code, got, err)
	}
}

func TestCreate_StudentTicketNotifiesAllAdmins(t *testing.T) {
	h := newHarness(allUsers()...)
	ticket := mustCreate(t, h, student1.Actor(), false)

	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("new ticket status = %s, want open", ticket.Status)
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Fatalf("default priority = %s, want medium", ticket.Priority)
	}
	if !ticket.ReadByStudent || ticket.ReadByAdmin {
		t.Fatalf("read flags = student:%v admin:%v, want true/false", ticket.ReadByStudent, ticket.ReadByAdmin)
	}

	history, _ := h.history.ListByTicket(context.Background(), ticket.ID)
	if len(history) != 1 || history[0].Action != domain.HistoryActionCreate {
		t.Fatalf("history = %+v, want single create entry", history)
	}

	created := h.notifications.byType(domain.NotificationNewTicket)
	if len(created) != 2 {
		t.Fatalf("expected one notification per admin, got %d", len(created))
	}
	recipients := map[string]bool{}
	for _, n := range created {
		recipients[n.RecipientID] = true
		if n.RecipientRole != domain.RoleAdmin {
			t.Errorf("recipient role = %s, want admin", n.RecipientRole)
		}
		if n.TicketID == nil || *n.TicketID != ticket.ID {
			t.Errorf("notification ticket ref = %v, want %s", n.TicketID, ticket.ID)
		}
		if n.RecipientID == student1.ID {
			t.Error("creator must not be notified of their own action")
		}
	}
	if !recipients[admin1.ID] || !recipients[admin2.ID] {
		t.Fatalf("recipients = %v, want both admins", recipients)
	}
}

func TestCreate_Validation(t *testing.T) {
	h := newHarness(allUsers()...)
	ctx := context.Background()

	_, err := h.lifecycle.Create(ctx, student1.Actor(), CreateTicketInput{
		Description: "no title", CategoryID: "cat-1",
	})
	assertCode(t, err, "VALIDATION_FAILED")

	_, err = h.lifecycle.Create(ctx, student1.Actor(), CreateTicketInput{
		Title: "t", Description: "d", CategoryID: "nope",
	})
	assertCode(t, err, "VALIDATION_FAILED")

	_, err = h.lifecycle.Create(ctx, student1.Actor(), CreateTicketInput{
		Title: "t", Description: "d", CategoryID: "cat-1", Priority: "mild",
	})
	assertCode(t, err, "VALIDATION_FAILED")
}

func TestCreate_AnonymousTokenInvariant(t *testing.T) {
	h := newHarness(allUsers()...)

	anon := mustCreate(t, h, student1.Actor(), true)
	if anon.Token == nil {
		t.Fatal("anonymous ticket must carry a token")
	}
	if !token.ValidateFormat(*anon.Token) {
		t.Fatalf("token %q fails format check", *anon.Token)
	}

	plain := mustCreate(t, h, student1.Actor(), false)
	if plain.Token != nil {
		t.Fatalf("non-anonymous ticket has token %q", *plain.Token)
	}
}

func TestChangeStatus_StudentMayOnlyClose(t *testing.T) {
	h := newHarness(allUsers()...)
	ctx := context.Background()
	ticket := mustCreate(t, h, student1.Actor(), false)

	_, err := h.lifecycle.ChangeStatus(ctx, student1.Actor(), ticket.ID, domain.TicketStatusResolved, "")
	assertCode(t, err, "FORBIDDEN")

	// Denied attempt leaves no trace: no mutation, no extra history.
	stored, _ := h.tickets.GetByID(ctx, ticket.ID)
	if stored.Status != domain.TicketStatusOpen {
		t.Fatalf("status mutated to %s by a denied actor", stored.Status)
	}
	history, _ := h.history.ListByTicket(ctx, ticket.ID)
	if len(history) != 1 {
		t.Fatalf("history grew to %d entries after a denied attempt", len(history))
	}

	closed, err := h.lifecycle.ChangeStatus(ctx, student1.Actor(), ticket.ID, domain.TicketStatusClosed, "")
	if err != nil {
		t.Fatalf("owner closing own ticket: %v", err)
	}
	if closed.Status != domain.TicketStatusClosed {
		t.Fatalf("status = %s, want closed", closed.Status)
	}
}

func TestChangeStatus_OtherStudentDenied(t *testing.T) {
	h := newHarness(allUsers()...)
	ticket := mustCreate(t, h, student1.Actor(), false)

	_, err := h.lifecycle.ChangeStatus(context.Background(), student2.Actor(), ticket.ID, domain.TicketStatusClosed, "")
	assertCode(t, err, "FORBIDDEN")

	_, err = h.lifecycle.ChangeStatus(context.Background(), staff1.Actor(), ticket.ID, domain.TicketStatusResolved, "")
	assertCode(t, err, "FORBIDDEN")
}

func TestChangeStatus_RejectsUnknownStatus(t *testing.T) {
	h := newHarness(allUsers()...)
	ticket := mustCreate(t, h, student1.Actor(), false)

	_, err := h.lifecycle.ChangeStatus(context.Background(), admin1.Actor(), ticket.ID, "archived", "")
	assertCode(t, err, "VALIDATION_FAILED")
}

func TestChangeStatus_AdminFanoutAndAudit(t *testing.T) {
	h := newHarness(allUsers()...)
	ctx := context.Background()
	ticket := mustCreate(t, h, student1.Actor(), false)
	if _, err := h.lifecycle.AssignTicket(ctx, admin1.Actor(), ticket.ID, staff1.ID, ""); err != nil {
		t.Fatalf("assign: %v", err)
	}

	updated, err := h.lifecycle.ChangeStatus(ctx, admin1.Actor(), ticket.ID, domain.TicketStatusResolved, "fixed the cable")
	if err != nil {
		t.Fatalf("change status: %v", err)
	}
	if updated.ReadByStudent {
		t.Error("admin mutation must clear the student read flag")
	}

	history, _ := h.history.ListByTicket(ctx, ticket.ID)
	var statusEntries []domain.TicketHistory
	for _, e := range history {
		if e.Action == domain.HistoryActionStatusChange && e.OldStatus != nil && *e.OldStatus == domain.TicketStatusInProgress {
			statusEntries = append(statusEntries, e)
		}
	}
	if len(statusEntries) != 1 {
		t.Fatalf("expected exactly one status_change entry for the transition, got %d", len(statusEntries))
	}
	entry := statusEntries[0]
	if *entry.NewStatus != domain.TicketStatusResolved || entry.ActorID != admin1.ID {
		t.Fatalf("entry = %+v, want in_progress->resolved by admin-1", entry)
	}

	// Admin actor: owner + assigned disposisi, nobody else.
	created := h.notifications.byType(domain.NotificationStatusChange)
	if len(created) != 2 {
		t.Fatalf("expected 2 status_change notifications, got %d", len(created))
	}
	got := map[string]bool{}
	for _, n := range created {
		got[n.RecipientID] = true
	}
	if !got[student1.ID] || !got[staff1.ID] {
		t.Fatalf("recipients = %v, want owner and assigned staff", got)
	}

	// The comment rides along as a feedback entry.
	feedback, _ := h.feedback.ListByTicket(ctx, ticket.ID)
	if len(feedback) != 1 || feedback[0].Body != "fixed the cable" {
		t.Fatalf("feedback = %+v, want the transition comment", feedback)
	}
}

func TestChangePriority_AdminOnlyOwnerNotified(t *testing.T) {
	h := newHarness(allUsers()...)
	ctx := context.Background()
	ticket := mustCreate(t, h, student1.Actor(), false)
	if _, err := h.lifecycle.AssignTicket(ctx, admin1.Actor(), ticket.ID, staff1.ID, ""); err != nil {
		t.Fatalf("assign: %v", err)
	}

	_, err := h.lifecycle.ChangePriority(ctx, student1.Actor(), ticket.ID, domain.TicketPriorityHigh, "")
	assertCode(t, err, "FORBIDDEN")
	_, err = h.lifecycle.ChangePriority(ctx, staff1.Actor(), ticket.ID, domain.TicketPriorityHigh, "")
	assertCode(t, err, "FORBIDDEN")

	updated, err := h.lifecycle.ChangePriority(ctx, admin1.Actor(), ticket.ID, domain.TicketPriorityUrgent, "")
	if err != nil {
		t.Fatalf("change priority: %v", err)
	}
	if updated.Priority != domain.TicketPriorityUrgent {
		t.Fatalf("priority = %s, want urgent", updated.Priority)
	}

	// Informational to the owner only, even with staff assigned.
	created := h.notifications.byType(domain.NotificationPriorityChange)
	if len(created) != 1 || created[0].RecipientID != student1.ID {
		t.Fatalf("priority_change notifications = %+v, want owner only", created)
	}

	history, _ := h.history.ListByTicket(ctx, ticket.ID)
	var found bool
	for _, e := range history {
		if e.Action == domain.HistoryActionPriorityChange {
			found = true
			if *e.OldPriority != domain.TicketPriorityMedium || *e.NewPriority != domain.TicketPriorityUrgent {
				t.Fatalf("priority pair = %v -> %v, want medium -> urgent", *e.OldPriority, *e.NewPriority)
			}
		}
	}
	if !found {
		t.Fatal("missing priority_change history entry")
	}
}

func TestAssignTicket_AdvancesOpenToInProgress(t *testing.T) {
	h := newHarness(allUsers()...)
	ctx := context.Background()
	ticket := mustCreate(t, h, student1.Actor(), false)

	updated, err := h.lifecycle.AssignTicket(ctx, admin1.Actor(), ticket.ID, staff1.ID, "")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if updated.Status != domain.TicketStatusInProgress {
		t.Fatalf("status = %s, want in_progress", updated.Status)
	}
	if updated.AssignedTo == nil || *updated.AssignedTo != staff1.ID {
		t.Fatalf("assigned_to = %v, want %s", updated.AssignedTo, staff1.ID)
	}

	created := h.notifications.byType(domain.NotificationAssignment)
	if len(created) != 2 {
		t.Fatalf("expected 2 assignment notifications, got %d", len(created))
	}
	got := map[string]domain.Role{}
	for _, n := range created {
		got[n.RecipientID] = n.RecipientRole
	}
	if got[staff1.ID] != domain.RoleDisposisi || got[student1.ID] != domain.RoleStudent {
		t.Fatalf("recipients = %v, want assignee and owner", got)
	}

	// Both the assignment and the implicit status advance are in history.
	history, _ := h.history.ListByTicket(ctx, ticket.ID)
	var haveAssignment, haveAdvance bool
	for _, e := range history {
		switch e.Action {
		case domain.HistoryActionAssignment:
			haveAssignment = true
			if e.NewAssignee == nil || *e.NewAssignee != staff1.ID {
				t.Fatalf("assignment entry = %+v, want new assignee %s", e, staff1.ID)
			}
		case domain.HistoryActionStatusChange:
			if e.OldStatus != nil && *e.OldStatus == domain.TicketStatusOpen && *e.NewStatus == domain.TicketStatusInProgress {
				haveAdvance = true
			}
		}
	}
	if !haveAssignment || !haveAdvance {
		t.Fatalf("history = %+v, want assignment and status advance entries", history)
	}
}

func TestAssignTicket_Authorization(t *testing.T) {
	h := newHarness(allUsers()...)
	ctx := context.Background()
	ticket := mustCreate(t, h, student1.Actor(), false)

	_, err := h.lifecycle.AssignTicket(ctx, student1.Actor(), ticket.ID, staff1.ID, "")
	assertCode(t, err, "FORBIDDEN")

	_, err = h.lifecycle.AssignTicket(ctx, admin1.Actor(), ticket.ID, student2.ID, "")
	assertCode(t, err, "VALIDATION_FAILED")

	_, err = h.lifecycle.AssignTicket(ctx, admin1.Actor(), ticket.ID, "ghost", "")
	assertCode(t, err, "NOT_FOUND")
}

func TestAssignTicket_AlreadyInProgressKeepsStatus(t *testing.T) {
	h := newHarness(allUsers()...)
	ctx := context.Background()
	ticket := mustCreate(t, h, student1.Actor(), false)
	if _, err := h.lifecycle.AssignTicket(ctx, admin1.Actor(), ticket.ID, staff1.ID, ""); err != nil {
		t.Fatalf("assign: %v", err)
	}
	before, _ := h.history.ListByTicket(ctx, ticket.ID)

	updated, err := h.lifecycle.AssignTicket(ctx, admin1.Actor(), ticket.ID, staff1.ID, "")
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if updated.Status != domain.TicketStatusInProgress {
		t.Fatalf("status = %s, want in_progress unchanged", updated.Status)
	}
	after, _ := h.history.ListByTicket(ctx, ticket.ID)
	if len(after) != len(before)+1 {
		t.Fatalf("reassignment added %d history entries, want exactly 1", len(after)-len(before))
	}
}

func TestRevealAnonymousToken(t *testing.T) {
	h := newHarness(allUsers()...)
	h.passwords.passwords[student1.ID] = "correct horse"
	ctx := context.Background()
	ticket := mustCreate(t, h, student1.Actor(), true)

	// Admin bypasses password verification.
	tok, err := h.lifecycle.RevealAnonymousToken(ctx, admin1.Actor(), ticket.ID, "")
	if err != nil {
		t.Fatalf("admin reveal: %v", err)
	}
	if tok != *ticket.Token {
		t.Fatalf("revealed %q, want %q", tok, *ticket.Token)
	}

	// Owner with wrong password proves identity incorrectly.
	_, err = h.lifecycle.RevealAnonymousToken(ctx, student1.Actor(), ticket.ID, "wrong")
	assertCode(t, err, "UNAUTHORIZED")

	// Any other student lacks the right entirely.
	_, err = h.lifecycle.RevealAnonymousToken(ctx, student2.Actor(), ticket.ID, "correct horse")
	assertCode(t, err, "FORBIDDEN")

	// Owner with the right password succeeds.
	tok, err = h.lifecycle.RevealAnonymousToken(ctx, student1.Actor(), ticket.ID, "correct horse")
	if err != nil {
		t.Fatalf("owner reveal: %v", err)
	}
	if tok != *ticket.Token {
		t.Fatalf("revealed %q, want %q", tok, *ticket.Token)
	}

	// Reveal is cached for the session: a repeat read skips verification.
	if _, err := h.lifecycle.RevealAnonymousToken(ctx, student1.Actor(), ticket.ID, ""); err != nil {
		t.Fatalf("cached reveal: %v", err)
	}
}

func TestRevealAnonymousToken_NotAnonymous(t *testing.T) {
	h := newHarness(allUsers()...)
	ticket := mustCreate(t, h, student1.Actor(), false)

	_, err := h.lifecycle.RevealAnonymousToken(context.Background(), admin1.Actor(), ticket.ID, "")
	assertCode(t, err, "INVALID_OPERATION")
}

func TestSoftDeleteAndRestore(t *testing.T) {
	h := newHarness(allUsers()...)
	ctx := context.Background()
	ticket := mustCreate(t, h, student1.Actor(), false)

	if err := h.lifecycle.SoftDelete(ctx, student2.Actor(), ticket.ID); err == nil {
		t.Fatal("non-owner student deleted a ticket")
	}
	if err := h.lifecycle.SoftDelete(ctx, student1.Actor(), ticket.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}

	// Deleted tickets disappear from normal operations.
	_, err := h.lifecycle.ChangeStatus(ctx, admin1.Actor(), ticket.ID, domain.TicketStatusClosed, "")
	assertCode(t, err, "NOT_FOUND")

	_, err = h.lifecycle.Restore(ctx, student1.Actor(), ticket.ID)
	assertCode(t, err, "FORBIDDEN")

	restored, err := h.lifecycle.Restore(ctx, admin1.Actor(), ticket.ID)
	if err != nil {
		t.Fatalf("admin restore: %v", err)
	}
	if restored.Deleted() {
		t.Fatal("ticket still deleted after restore")
	}

	history, _ := h.history.ListByTicket(ctx, ticket.ID)
	var haveDelete, haveRestore bool
	for _, e := range history {
		if e.Action == domain.HistoryActionDelete {
			haveDelete = true
		}
		if e.Action == domain.HistoryActionRestore {
			haveRestore = true
		}
	}
	if !haveDelete || !haveRestore {
		t.Fatalf("history = %+v, want delete and restore entries", history)
	}
}

func TestSoftDelete_ByAdminNotifiesOwner(t *testing.T) {
	h := newHarness(allUsers()...)
	ctx := context.Background()
	ticket := mustCreate(t, h, student1.Actor(), false)

	if err := h.lifecycle.SoftDelete(ctx, admin1.Actor(), ticket.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	custom := h.notifications.byType(domain.NotificationCustom)
	if len(custom) != 1 || custom[0].RecipientID != student1.ID {
		t.Fatalf("custom notifications = %+v, want one informational note to the owner", custom)
	}
}

func TestView_ReadTrackingAndNotificationClear(t *testing.T) {
	h := newHarness(allUsers()...)
	ctx := context.Background()
	ticket := mustCreate(t, h, student1.Actor(), false)

	// Creation left unread new_ticket notifications for both admins.
	unreadBefore, _ := h.notifications.CountUnread(ctx, admin1.ID)
	if unreadBefore != 1 {
		t.Fatalf("unread for admin-1 = %d, want 1", unreadBefore)
	}

	viewed, err := h.lifecycle.View(ctx, admin1.Actor(), ticket.ID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if !viewed.ReadByAdmin {
		t.Fatal("viewing must set the admin read flag")
	}
	unreadAfter, _ := h.notifications.CountUnread(ctx, admin1.ID)
	if unreadAfter != 0 {
		t.Fatalf("unread for admin-1 after view = %d, want 0", unreadAfter)
	}
	// The other admin's notifications stay untouched.
	if n, _ := h.notifications.CountUnread(ctx, admin2.ID); n != 1 {
		t.Fatalf("unread for admin-2 = %d, want 1", n)
	}
}

func TestAddFeedback_Fanout(t *testing.T) {
	h := newHarness(allUsers()...)
	ctx := context.Background()
	ticket := mustCreate(t, h, student1.Actor(), false)
	if _, err := h.lifecycle.AssignTicket(ctx, admin1.Actor(), ticket.ID, staff1.ID, ""); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if _, err := h.lifecycle.AddFeedback(ctx, staff1.Actor(), ticket.ID, "looking into it"); err != nil {
		t.Fatalf("feedback: %v", err)
	}
	created := h.notifications.byType(domain.NotificationFeedback)
	if len(created) != 1 || created[0].RecipientID != student1.ID {
		t.Fatalf("feedback notifications = %+v, want owner only for disposisi actor", created)
	}

	_, err := h.lifecycle.AddFeedback(ctx, student2.Actor(), ticket.ID, "me too")
	assertCode(t, err, "FORBIDDEN")
}
