package crm

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/CSRAutomation/sofia-salesforce-api/internal/domain/crm"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/domain/soql"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/infrastructure/logger"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/infrastructure/telemetry"
)

// Outcome is the terminal state of linking a new contact to the Account
// the platform Flow creates for it.
type Outcome string

const (
	// OutcomeLinked means the Account was found and the contact now points at it
	OutcomeLinked Outcome = "linked"
	// OutcomeUnlinked means no Account appeared within the wait budget, or
	// the search failed
	OutcomeUnlinked Outcome = "unlinked"
	// OutcomeLinkFailed means the Account was found but writing AccountId failed
	OutcomeLinkFailed Outcome = "link_failed"
)

// ReconciliationResult reports how reconciliation ended. Err is set for
// failures and is only ever logged.
type ReconciliationResult struct {
	Outcome   Outcome
	AccountID string
	Err       error
}

// ReconcilerConfig bounds the wait for the Flow-created Account
type ReconcilerConfig struct {
	// InitialDelay precedes the first search
	InitialDelay time.Duration
	// PollInterval separates later searches
	PollInterval time.Duration
	// MaxAttempts is the number of searches
	MaxAttempts int
	// Budget caps the whole wait, search and link
	Budget time.Duration
}

// DefaultReconcilerConfig returns the production timings
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		InitialDelay: 5 * time.Second,
		PollInterval: 2 * time.Second,
		MaxAttempts:  3,
		Budget:       30 * time.Second,
	}
}

// Reconciler links a freshly created contact to the Account that a
// platform automation creates asynchronously. There is no completion
// signal, so it polls by the Account's conventional name.
type Reconciler struct {
	gateway crm.RecordGateway
	cfg     ReconcilerConfig
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewReconciler creates a Reconciler. Zero config values take defaults.
func NewReconciler(gateway crm.RecordGateway, cfg ReconcilerConfig, log *zap.Logger) *Reconciler {
	def := DefaultReconcilerConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Budget <= 0 {
		cfg.Budget = def.Budget
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		gateway: gateway,
		cfg:     cfg,
		logger:  log,
		sleep:   sleepContext,
	}
}

// AccountLookupKey derives the Account name the Flow assigns: the contact's
// "First Last", trimmed and uppercased.
func AccountLookupKey(firstName, lastName string) string {
	// Casers are stateful, so each call gets its own.
	return cases.Upper(language.Und).String(strings.TrimSpace(firstName + " " + lastName))
}

// Reconcile waits for the contact's Account and links it. It never fails
// the caller: every problem is folded into the result and logged once.
// Client cancellation does not stop it; the configured budget does.
func (r *Reconciler) Reconcile(ctx context.Context, contactID, firstName, lastName string) ReconciliationResult {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.Budget)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, "contact.reconcile",
		telemetry.WithAttribute(telemetry.SpanAttrRecordID, contactID),
	)
	defer span.End()

	key := AccountLookupKey(firstName, lastName)
	log := logger.WithLogger(ctx, r.logger).With(
		zap.String("contact_id", contactID),
		zap.String("account_name", key),
	)

	result := r.reconcile(ctx, contactID, key, log)
	telemetry.SetAttributes(span, telemetry.SpanAttrOutcome, string(result.Outcome))
	if result.Err != nil {
		telemetry.RecordError(span, result.Err)
	}
	return result
}

func (r *Reconciler) reconcile(ctx context.Context, contactID, key string, log *logger.ContextLogger) ReconciliationResult {
	query, err := soql.Select(crm.FieldID).
		From(crm.ObjectAccount).
		Where(soql.Eq(crm.FieldName, key)).
		Limit(1).
		Build()
	if err != nil {
		recErr := &crm.ReconciliationError{Stage: "search", Err: err}
		log.Error("building account search failed", zap.Error(err))
		return ReconciliationResult{Outcome: OutcomeUnlinked, Err: recErr}
	}

	accountID, err := r.waitForAccount(ctx, query)
	if err != nil {
		recErr := &crm.ReconciliationError{Stage: "search", Err: err}
		log.Error("account search failed; contact left without account", zap.Error(err))
		return ReconciliationResult{Outcome: OutcomeUnlinked, Err: recErr}
	}
	if accountID == "" {
		log.Warn("no account found within the wait budget; contact left without account",
			zap.Int("attempts", r.cfg.MaxAttempts),
		)
		return ReconciliationResult{Outcome: OutcomeUnlinked}
	}

	if err := r.link(ctx, contactID, accountID); err != nil {
		recErr := &crm.ReconciliationError{Stage: "link", Err: err}
		log.Error("linking contact to account failed",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
		return ReconciliationResult{Outcome: OutcomeLinkFailed, AccountID: accountID, Err: recErr}
	}

	log.Info("contact linked to account", zap.String("account_id", accountID))
	return ReconciliationResult{Outcome: OutcomeLinked, AccountID: accountID}
}

// link writes AccountId on the contact. An answer with success=false is a
// failure like any transport error.
func (r *Reconciler) link(ctx context.Context, contactID, accountID string) error {
	res, err := r.gateway.Update(ctx, crm.ObjectContact, contactID, crm.Record{string(crm.FieldAccountID): accountID})
	if err != nil {
		return err
	}
	if res == nil || !res.Success {
		failed := &crm.UpdateFailedError{Object: crm.ObjectContact, ID: contactID}
		if res != nil {
			failed.Errors = res.Errors
		}
		return failed
	}
	return nil
}

// waitForAccount polls until the Account exists, attempts run out, or the
// budget ends. An empty id with a nil error means not found. A failed
// search ends the wait; it is not retried.
func (r *Reconciler) waitForAccount(ctx context.Context, query string) (string, error) {
	delay := r.cfg.InitialDelay
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := r.sleep(ctx, delay); err != nil {
			return "", nil
		}
		delay = r.cfg.PollInterval

		rs, err := r.gateway.Query(ctx, query)
		if err != nil {
			return "", err
		}
		if rec, ok := rs.First(); ok && rec.ID() != "" {
			return rec.ID(), nil
		}
	}
	return "", nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
