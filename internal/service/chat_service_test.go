package service

import (
	"context"
	"testing"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestPostMessage_AuthorSeededIntoReadSet(t *testing.T) {
	h := newHarness(allUsers()...)
	ctx := context.Background()
	ticket := mustCreate(t, h, student1.Actor(), false)

	message, err := h.chat.PostMessage(ctx, student1.Actor(), ticket.ID, "any update on this?")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if !message.ReadByUser(student1.ID) {
		t.Fatal("a message must be read by its own sender at creation")
	}

	created := h.notifications.byType(domain.NotificationChatMessage)
	recipients := map[string]bool{}
	for _, n := range created {
		recipients[n.RecipientID] = true
	}
	// Student actor on an unassigned ticket: all admins, nobody else.
	if len(created) != 2 || !recipients[admin1.ID] || !recipients[admin2.ID] {
		t.Fatalf("chat_message recipients = %v, want both admins", recipients)
	}
}

func TestPostMessage_Validation(t *testing.T) {
	h := newHarness(allUsers()...)
	ticket := mustCreate(t, h, student1.Actor(), false)

	_, err := h.chat.PostMessage(context.Background(), student1.Actor(), ticket.ID, "   ")
	assertCode(t, err, "VALIDATION_FAILED")

	_, err = h.chat.PostMessage(context.Background(), student2.Actor(), ticket.ID, "hi")
	assertCode(t, err, "FORBIDDEN")
}

func TestMarkRead_Idempotent(t *testing.T) {
	h := newHarness(allUsers()...)
	ctx := context.Background()
	ticket := mustCreate(t, h, student1.Actor(), false)
	if _, err := h.chat.PostMessage(ctx, student1.Actor(), ticket.ID, "first"); err != nil {
		t.Fatalf("post: %v", err)
	}
	if _, err := h.chat.PostMessage(ctx, student1.Actor(), ticket.ID, "second"); err != nil {
		t.Fatalf("post: %v", err)
	}

	messages, _ := h.messages.ListByTicket(ctx, ticket.ID)
	if err := h.chat.MarkRead(ctx, messages, admin1.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	after, _ := h.messages.ListByTicket(ctx, ticket.ID)
	for _, m := range after {
		if !m.ReadByUser(admin1.ID) {
			t.Fatalf("message %s not marked read", m.ID)
		}
		if len(m.ReadBy) != 2 {
			t.Fatalf("read set = %v, want author plus admin", m.ReadBy)
		}
	}

	// Second pass changes nothing.
	if err := h.chat.MarkRead(ctx, after, admin1.ID); err != nil {
		t.Fatalf("re-mark read: %v", err)
	}
	again, _ := h.messages.ListByTicket(ctx, ticket.ID)
	for _, m := range again {
		if len(m.ReadBy) != 2 {
			t.Fatalf("read set grew on re-mark: %v", m.ReadBy)
		}
	}
}

func TestHasUnread_FlipsWithMarkRead(t *testing.T) {
	h := newHarness(allUsers()...)
	ctx := context.Background()
	ticket := mustCreate(t, h, student1.Actor(), false)

	unread, err := h.chat.HasUnread(ctx, ticket.ID, admin1.ID)
	if err != nil || unread {
		t.Fatalf("empty thread unread = %v err = %v, want false", unread, err)
	}

	if _, err := h.chat.PostMessage(ctx, student1.Actor(), ticket.ID, "hello"); err != nil {
		t.Fatalf("post: %v", err)
	}
	if unread, _ = h.chat.HasUnread(ctx, ticket.ID, admin1.ID); !unread {
		t.Fatal("expected unread immediately after another user posts")
	}
	// The sender has nothing unread.
	if unread, _ = h.chat.HasUnread(ctx, ticket.ID, student1.ID); unread {
		t.Fatal("sender must not see their own message as unread")
	}

	if err := h.chat.MarkTicketRead(ctx, ticket.ID, admin1.ID); err != nil {
		t.Fatalf("mark ticket read: %v", err)
	}
	if unread, _ = h.chat.HasUnread(ctx, ticket.ID, admin1.ID); unread {
		t.Fatal("expected no unread after MarkRead")
	}
}

func TestClosedTicket_ChatFrozen(t *testing.T) {
	h := newHarness(allUsers()...)
	ctx := context.Background()
	ticket := mustCreate(t, h, student1.Actor(), false)

	message, err := h.chat.PostMessage(ctx, student1.Actor(), ticket.ID, "before close")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	attachment, err := h.chat.AddAttachment(ctx, student1.Actor(), message.ID, "photo.jpg", "uploads/photo.jpg")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	if _, err := h.lifecycle.ChangeStatus(ctx, admin1.Actor(), ticket.ID, domain.TicketStatusClosed, ""); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Every chat mutation is denied on a closed ticket, for any role.
	_, err = h.chat.PostMessage(ctx, admin1.Actor(), ticket.ID, "late")
	assertCode(t, err, "FORBIDDEN")
	_, err = h.chat.AddAttachment(ctx, admin1.Actor(), message.ID, "late.jpg", "uploads/late.jpg")
	assertCode(t, err, "FORBIDDEN")
	err = h.chat.DeleteMessage(ctx, admin1.Actor(), message.ID)
	assertCode(t, err, "FORBIDDEN")
	err = h.chat.DeleteAttachment(ctx, admin1.Actor(), attachment.ID)
	assertCode(t, err, "FORBIDDEN")
}

func TestDeleteMessage_AuthorOrAdminOnly(t *testing.T) {
	h := newHarness(allUsers()...)
	ctx := context.Background()
	ticket := mustCreate(t, h, student1.Actor(), false)
	if _, err := h.lifecycle.AssignTicket(ctx, admin1.Actor(), ticket.ID, staff1.ID, ""); err != nil {
		t.Fatalf("assign: %v", err)
	}

	message, err := h.chat.PostMessage(ctx, student1.Actor(), ticket.ID, "typo in here")
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	err = h.chat.DeleteMessage(ctx, staff1.Actor(), message.ID)
	assertCode(t, err, "FORBIDDEN")

	if err := h.chat.DeleteMessage(ctx, student1.Actor(), message.ID); err != nil {
		t.Fatalf("author delete: %v", err)
	}
	messages, _ := h.messages.ListByTicket(ctx, ticket.ID)
	if len(messages) != 0 {
		t.Fatalf("deleted message still listed: %+v", messages)
	}

	second, err := h.chat.PostMessage(ctx, staff1.Actor(), ticket.ID, "resolved")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if err := h.chat.DeleteMessage(ctx, admin1.Actor(), second.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestHasUnread_IgnoresDeletedMessages(t *testing.T) {
	h := newHarness(allUsers()...)
	ctx := context.Background()
	ticket := mustCreate(t, h, student1.Actor(), false)

	message, err := h.chat.PostMessage(ctx, student1.Actor(), ticket.ID, "oops")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if err := h.chat.DeleteMessage(ctx, student1.Actor(), message.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if unread, _ := h.chat.HasUnread(ctx, ticket.ID, admin1.ID); unread {
		t.Fatal("deleted messages must not count as unread")
	}
}
