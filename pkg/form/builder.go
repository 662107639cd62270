package form

import (
	"errors"
	"fmt"
)

// Mode distinguishes a fresh form from an edit of a published one. The
// publishing pipeline is identical in both modes; Edit seeds the builder
// from the fetched form and the new content re-derives its ID through the
// same function, superseding the prior record.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

var ErrQuestionIndex = errors.New("question index out of range")

// Builder accumulates form input over a create/edit session. It is owned by
// a single session and is not safe for concurrent use; Snapshot returns an
// immutable Content.
type Builder struct {
	mode        Mode
	title       string
	description string
	questions   []Question
	settings    Settings
}

// NewBuilder starts a create session with a single empty text question.
func NewBuilder() *Builder {
	return &Builder{
		mode:      ModeCreate,
		questions: []Question{{Type: QuestionTypeText}},
	}
}

// NewEditBuilder starts an edit session seeded from published content.
func NewEditBuilder(c Content) *Builder {
	b := &Builder{
		mode:        ModeEdit,
		title:       c.Title,
		description: c.Description,
		questions:   append([]Question(nil), c.Questions...),
		settings:    c.Settings,
	}
	if g := c.Settings.Gate; g != nil {
		gate := Gate{
			MerkleRoot:       g.MerkleRoot,
			AllowedAddresses: append([]string(nil), g.AllowedAddresses...),
		}
		b.settings.Gate = &gate
	}
	return b
}

func (b *Builder) Mode() Mode { return b.mode }

func (b *Builder) SetTitle(title string)      { b.title = title }
func (b *Builder) SetDescription(desc string) { b.description = desc }

func (b *Builder) SetSettings(s Settings) { b.settings = s }

func (b *Builder) AddQuestion(q Question) { b.questions = append(b.questions, q) }

func (b *Builder) UpdateQuestion(i int, q Question) error {
	if i < 0 || i >= len(b.questions) {
		return fmt.Errorf("%w: %d of %d", ErrQuestionIndex, i, len(b.questions))
	}
	b.questions[i] = q
	return nil
}

func (b *Builder) RemoveQuestion(i int) error {
	if i < 0 || i >= len(b.questions) {
		return fmt.Errorf("%w: %d of %d", ErrQuestionIndex, i, len(b.questions))
	}
	b.questions = append(b.questions[:i], b.questions[i+1:]...)
	return nil
}

// Snapshot freezes the session into validated, immutable content ready for
// ID derivation and signing.
func (b *Builder) Snapshot(owner, appID string, unixTime int64) (Content, error) {
	owner, err := NormalizeAddress(owner)
	if err != nil {
		return Content{}, err
	}
	c := Content{
		Title:       b.title,
		Description: b.description,
		UnixTime:    unixTime,
		Questions:   append([]Question(nil), b.questions...),
		Settings:    b.settings,
		Owner:       owner,
		Status:      StatusActive,
		AppID:       appID,
	}
	if err := Validate(c); err != nil {
		return Content{}, err
	}
	return c, nil
}
