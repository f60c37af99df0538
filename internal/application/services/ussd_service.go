package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/afritokeni/ussd-gateway/internal/application/menus"
	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/caching/interfaces"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/performance"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/security"
)

// maxDelegations bounds handler-to-handler hand-offs within one request
const maxDelegations = 3

// Request outcomes recorded per menu
const (
	OutcomeContinue    = "continue"
	OutcomeEnd         = "end"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
	OutcomeInvalid     = "invalid"
)

// USSDRequest is one gateway callback
type USSDRequest struct {
	SessionID   string
	ServiceCode string
	PhoneNumber string
	Text        string
}

// USSDService is the session dispatcher. It always returns a CON/END body.
type USSDService struct {
	store    interfaces.SessionStore
	registry *menus.Registry
	catalog  *menus.Catalog
	limiter  *security.PhoneLimiter
	logger   *logging.ChanneledLogger
	tracker  *performance.Tracker
	now      func() time.Time
}

// NewUSSDService creates the dispatcher. limiter and tracker may be nil.
func NewUSSDService(store interfaces.SessionStore, registry *menus.Registry, catalog *menus.Catalog, limiter *security.PhoneLimiter, logger *logging.ChanneledLogger, tracker *performance.Tracker) *USSDService {
	return &USSDService{
		store:    store,
		registry: registry,
		catalog:  catalog,
		limiter:  limiter,
		logger:   logger,
		tracker:  tracker,
		now:      time.Now,
	}
}

// Dispatch answers one callback
func (s *USSDService) Dispatch(ctx context.Context, req USSDRequest) string {
	start := time.Now()
	var marker *performance.Marker
	if s.tracker != nil {
		marker = s.tracker.StartOperation("ussd:dispatch")
		defer marker.Complete()
	}

	sessionID := strings.TrimSpace(req.SessionID)
	phone := session.NormalizePhoneNumber(req.PhoneNumber)
	if sessionID == "" || phone == "" {
		s.logger.USSD().Warn("Rejected USSD request with missing fields",
			"hasSessionId", sessionID != "", "hasPhoneNumber", phone != "")
		s.record("", OutcomeInvalid)
		return menus.Format(false, s.catalog.Text(session.DefaultLanguage, menus.KeyInvalidRequest))
	}

	reqLog := s.logger.WithSession(logging.ChannelUSSD, sessionID, phone)
	reqLog.Info("USSD request", "serviceCode", req.ServiceCode, "inputs", len(menus.Tokens(req.Text)))

	if !s.limiter.Allow(phone, s.now()) {
		reqLog.Warn("USSD request rate limited")
		if s.tracker != nil {
			s.tracker.RecordRateLimited()
		}
		s.record("", OutcomeRateLimited)
		return menus.Format(false, s.catalog.Text(session.DefaultLanguage, menus.KeyTooManyRequests))
	}

	sess, err := s.store.GetOrCreate(ctx, sessionID, phone)
	if err != nil {
		s.logger.LogError(logging.ChannelSession, "get_or_create", err, map[string]any{"sessionId": logging.MaskSessionID(sessionID)})
		if marker != nil {
			marker.SetError(err)
		}
		s.record("", OutcomeError)
		return s.unavailable(session.DefaultLanguage)
	}
	entryMenu := sess.CurrentMenu

	resp, err := s.run(ctx, sess, req.Text)
	if err != nil {
		reqLog.Error("Handler failed", "menu", sess.CurrentMenu, "step", sess.Step, "error", err.Error())
		if marker != nil {
			marker.SetError(err)
		}
		s.deleteSession(ctx, sessionID)
		s.record(entryMenu, OutcomeError)
		return s.unavailable(sess.Lang())
	}

	reply := resp.Render()
	if resp.Kind == menus.KindEnd {
		s.deleteSession(ctx, sessionID)
		s.record(entryMenu, OutcomeEnd)
	} else {
		s.save(ctx, sess)
		s.record(entryMenu, OutcomeContinue)
	}

	reqLog.Info("USSD response", "entryMenu", entryMenu, "menu", sess.CurrentMenu, "step", sess.Step,
		"kind", resp.Kind.String(), "duration", time.Since(start))
	return reply
}

// run invokes the handler for the current menu and follows delegations.
// A panicking handler is turned into an error.
func (s *USSDService) run(ctx context.Context, sess *session.Session, input string) (resp menus.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.USSD().Error("Handler panic recovered", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	handler := s.registry.Lookup(sess.CurrentMenu)
	for hop := 0; ; hop++ {
		resp = handler.Handle(ctx, input, sess)
		if resp.Kind != menus.KindDelegate {
			return resp, nil
		}
		if hop >= maxDelegations {
			return resp, errors.New("delegation limit exceeded")
		}
		s.logger.USSD().Debug("Delegating", "from", handler.Menu(), "to", resp.Target)
		handler = s.registry.Lookup(resp.Target)
		input = resp.Input
	}
}

// save writes back the menu-owned fields. A session swept mid-request is logged and skipped.
func (s *USSDService) save(ctx context.Context, sess *session.Session) {
	err := s.store.Update(ctx, sess.SessionID, func(stored *session.Session) {
		stored.CurrentMenu = sess.CurrentMenu
		stored.Step = sess.Step
		stored.Data = sess.Data
		stored.Language = sess.Language
	})
	if err == nil {
		return
	}
	if errors.Is(err, interfaces.ErrSessionNotFound) {
		s.logger.Session().Warn("Session vanished before write-back", "sessionId", logging.MaskSessionID(sess.SessionID))
		return
	}
	s.logger.LogError(logging.ChannelSession, "update", err, map[string]any{"sessionId": logging.MaskSessionID(sess.SessionID)})
}

func (s *USSDService) deleteSession(ctx context.Context, sessionID string) {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.logger.LogError(logging.ChannelSession, "delete", err, map[string]any{"sessionId": logging.MaskSessionID(sessionID)})
	}
}

func (s *USSDService) unavailable(lang session.Language) string {
	return menus.Format(false, s.catalog.Text(lang, menus.KeyUnavailable))
}

func (s *USSDService) record(menu session.Menu, outcome string) {
	if s.tracker == nil {
		return
	}
	if menu == "" {
		menu = "none"
	}
	s.tracker.RecordRequest(string(menu), outcome)
}
