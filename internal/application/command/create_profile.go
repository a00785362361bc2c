// Package command contains write operations (CQRS - Commands). Each handler
// validates its command, applies the transition through the ledger, and
// publishes the resulting domain events after the state change commits.
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/suilotion/peerhelp-hub/internal/domain/profile"
	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
	"github.com/suilotion/peerhelp-hub/internal/ledger"
	"github.com/suilotion/peerhelp-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE PROFILE COMMAND
// Registers the caller in the marketplace. The display name and external
// login come from the identity provider at registration time and are not
// revalidated on later calls.
// ══════════════════════════════════════════════════════════════════════════════

// CreateProfileCommand contains the data to create a student profile.
type CreateProfileCommand struct {
	// Caller is the authenticated identity creating the profile.
	Caller shared.Identity

	// DisplayName is the name shown to other students.
	DisplayName string

	// ExternalLogin is the verified 42 Intra login.
	ExternalLogin string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CreateProfileCommand) Validate() error {
	if !c.Caller.IsValid() {
		return errors.New("create_profile: caller is required")
	}
	if c.DisplayName == "" {
		return errors.New("create_profile: display_name is required")
	}
	if c.ExternalLogin == "" {
		return errors.New("create_profile: external_login is required")
	}
	return nil
}

// CreateProfileResult contains the result of profile creation.
type CreateProfileResult struct {
	// Profile is the created profile snapshot.
	Profile *profile.StudentProfile

	// Events contains the domain events generated.
	Events []shared.Event
}

// CreateProfileHandler handles the CreateProfileCommand.
type CreateProfileHandler struct {
	ledger         *ledger.Ledger
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewCreateProfileHandler creates a new CreateProfileHandler.
func NewCreateProfileHandler(l *ledger.Ledger, pub shared.EventPublisher, log *logger.Logger) *CreateProfileHandler {
	return &CreateProfileHandler{
		ledger:         l,
		eventPublisher: pub,
		log:            log.With(logger.Component("command.create_profile")),
	}
}

// Handle executes the create profile command.
func (h *CreateProfileHandler) Handle(ctx context.Context, cmd CreateProfileCommand) (*CreateProfileResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_profile: validation failed: %w", err)
	}

	p, events, err := h.ledger.CreateProfile(cmd.Caller, cmd.DisplayName, cmd.ExternalLogin)
	if err != nil {
		return nil, err
	}

	publishEvents(h.eventPublisher, events)

	h.log.Info("profile created",
		logger.Identity(cmd.Caller.String()),
		logger.String("external_login", p.ExternalLogin),
	)

	return &CreateProfileResult{Profile: p, Events: events}, nil
}

// publishEvents publishes a batch of events, best effort. State has already
// committed; a publish failure is logged by the bus, never surfaced to the
// caller.
func publishEvents(pub shared.EventPublisher, events []shared.Event) {
	if pub == nil {
		return
	}
	for _, e := range events {
		_ = pub.Publish(e)
	}
}
