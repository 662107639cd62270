package form

import (
	"errors"
	"testing"
)

func TestBuilderCreateSession(t *testing.T) {
	b := NewBuilder()
	if b.Mode() != ModeCreate {
		t.Fatalf("expected create mode")
	}
	b.SetTitle("Feedback")
	b.SetDescription("v1")
	if err := b.UpdateQuestion(0, Question{Label: "Name", Type: QuestionTypeText, Required: true}); err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}
	b.AddQuestion(Question{Label: "Color", Type: QuestionTypeSelect, Options: []string{"red", "blue"}})

	c, err := b.Snapshot("0xAAAA111111111111111111111111111111111111", "storyform", 1700000000)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if c.Owner != "0xaaaa111111111111111111111111111111111111" {
		t.Fatalf("owner not normalized: %q", c.Owner)
	}
	if c.Status != StatusActive {
		t.Fatalf("snapshot status = %q", c.Status)
	}
	if len(c.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(c.Questions))
	}

	// Mutating the builder after Snapshot must not reach the snapshot.
	if err := b.RemoveQuestion(1); err != nil {
		t.Fatalf("RemoveQuestion: %v", err)
	}
	if len(c.Questions) != 2 {
		t.Fatalf("snapshot aliased builder state")
	}
}

func TestBuilderQuestionIndexErrors(t *testing.T) {
	b := NewBuilder()
	if err := b.UpdateQuestion(5, Question{}); !errors.Is(err, ErrQuestionIndex) {
		t.Fatalf("expected ErrQuestionIndex, got %v", err)
	}
	if err := b.RemoveQuestion(-1); !errors.Is(err, ErrQuestionIndex) {
		t.Fatalf("expected ErrQuestionIndex, got %v", err)
	}
}

func TestBuilderSnapshotRejectsInvalidContent(t *testing.T) {
	b := NewBuilder()
	b.SetTitle("broken")
	// Default question is valid; corrupt it.
	if err := b.UpdateQuestion(0, Question{Label: "q", Type: "range"}); err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}
	if _, err := b.Snapshot("0xaaaa111111111111111111111111111111111111", "storyform", 1); !errors.Is(err, ErrEncoding) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if _, err := b.Snapshot("nope", "storyform", 1); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestEditBuilderDeepCopiesGate(t *testing.T) {
	published := baseContent()
	published.Settings.Gate = &Gate{
		MerkleRoot:       "7",
		AllowedAddresses: []string{"0x1111111111111111111111111111111111111111"},
	}

	b := NewEditBuilder(published)
	if b.Mode() != ModeEdit {
		t.Fatalf("expected edit mode")
	}
	s := b.settings
	s.Gate.AllowedAddresses[0] = "0x2222222222222222222222222222222222222222"
	if published.Settings.Gate.AllowedAddresses[0] != "0x1111111111111111111111111111111111111111" {
		t.Fatalf("edit session aliased the published gate")
	}

	b.SetTitle("Community survey v2")
	edited, err := b.Snapshot(published.Owner, published.AppID, published.UnixTime+60)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	oldID, err := DeriveID(published)
	if err != nil {
		t.Fatalf("DeriveID: %v", err)
	}
	newID, err := DeriveID(edited)
	if err != nil {
		t.Fatalf("DeriveID: %v", err)
	}
	if oldID == newID {
		t.Fatalf("edited content kept the original id")
	}
}
