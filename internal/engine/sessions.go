package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ordervox/ordervox/internal/contextengine"
	"github.com/ordervox/ordervox/internal/storage"
	"github.com/ordervox/ordervox/pkg/types"
)

// profileKeyPrefix namespaces persisted user profiles in the KV store.
const profileKeyPrefix = "profile:"

// StartSession opens a session explicitly and returns it. Passing an empty
// id generates one.
func (e *VoiceEngine) StartSession(id string) *types.Session {
	if id == "" {
		id = uuid.NewString()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionLocked(id)
}

// EndSession closes a session and tears down its context engine. Unknown
// session ids are ignored.
func (e *VoiceEngine) EndSession(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeSessionLocked(id)
}

// Session returns the session by id, or nil.
func (e *VoiceEngine) Session(id string) *types.Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sessions[id]
}

// Sessions returns the active sessions.
func (e *VoiceEngine) Sessions() []*types.Session {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*types.Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		out = append(out, s)
	}
	return out
}

// ensureSession resolves the effective session id, creating the session on
// first interaction.
func (e *VoiceEngine) ensureSession(id string) string {
	if id == "" {
		id = uuid.NewString()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionLocked(id).ID
}

// sessionLocked returns the session, creating it if needed. Caller holds the
// write lock.
func (e *VoiceEngine) sessionLocked(id string) *types.Session {
	if s, ok := e.sessions[id]; ok {
		return s
	}
	s := &types.Session{ID: id, StartedAt: time.Now()}
	e.sessions[id] = s
	e.contexts[id] = contextengine.New(e.cfg.Classifier)
	log.Printf("engine: session %s started", id)
	return s
}

// closeSessionLocked stamps the end time and drops the session's context
// engine. Caller holds the write lock.
func (e *VoiceEngine) closeSessionLocked(id string) {
	s, ok := e.sessions[id]
	if !ok {
		return
	}
	now := time.Now()
	s.EndedAt = &now
	if ce, ok := e.contexts[id]; ok {
		ce.Reset()
		delete(e.contexts, id)
	}
	delete(e.sessions, id)
	log.Printf("engine: session %s ended", id)
}

// contextEngine returns the session's context engine, creating the session
// when it does not exist yet.
func (e *VoiceEngine) contextEngine(sessionID string) *contextengine.Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessionLocked(sessionID)
	return e.contexts[sessionID]
}

// Profile loads the persisted profile for a session, returning a fresh one
// when none exists yet.
func (e *VoiceEngine) Profile(ctx context.Context, sessionID string) (*types.UserProfile, error) {
	data, err := e.store.Get(ctx, profileKeyPrefix+sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &types.UserProfile{
				ID:          sessionID,
				Preferences: make(map[string]string),
				Stats:       types.BehaviorStats{IntentCounts: make(map[string]int)},
			}, nil
		}
		return nil, fmt.Errorf("engine: failed to load profile %s: %w", sessionID, err)
	}

	var profile types.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("engine: corrupt profile %s: %w", sessionID, err)
	}
	return &profile, nil
}

// updateProfile folds one command outcome into the persisted profile. Errors
// are logged, not propagated: profile persistence must never fail a command.
func (e *VoiceEngine) updateProfile(ctx context.Context, sessionID string, cmd *types.Command, res *types.Result) {
	profile, err := e.Profile(ctx, sessionID)
	if err != nil {
		log.Printf("WARNING: skipping profile update: %v", err)
		return
	}

	profile.Stats.TotalCommands++
	if res.Success {
		profile.Stats.Successful++
	} else {
		profile.Stats.Failed++
	}
	if profile.Stats.IntentCounts == nil {
		profile.Stats.IntentCounts = make(map[string]int)
	}
	profile.Stats.IntentCounts[string(cmd.Intent.Name)]++
	profile.Stats.LastActivityAt = time.Now()
	profile.UpdatedAt = time.Now()

	data, err := json.Marshal(profile)
	if err != nil {
		log.Printf("WARNING: failed to marshal profile %s: %v", sessionID, err)
		return
	}
	if err := e.store.Set(ctx, profileKeyPrefix+sessionID, data); err != nil {
		log.Printf("WARNING: failed to persist profile %s: %v", sessionID, err)
	}
}
