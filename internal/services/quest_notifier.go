package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/realtime"
	"github.com/Jethrr/moodlequest-sub000/internal/types"
)

// QuestNotifier publishes reward feedback to a user's live sessions.
// Delivery is best effort and fully detached from the request that
// produced the reward.
type QuestNotifier interface {
	NotifyXPReward(userID uuid.UUID, amount int, reason string, data map[string]any)
	NotifyQuestCompletion(userID uuid.UUID, quest *types.Quest, xpAwarded int)
	NotifyBadgeAwarded(userID uuid.UUID, badge *types.Badge)
	// NotifyBroadcast republishes a per-user copy of the template to
	// every listed user, bounded-parallel.
	NotifyBroadcast(template realtime.Notification, userIDs []uuid.UUID)
}

type questNotifier struct {
	log     *logger.Logger
	cfg     GamificationConfig
	emitter Emitter
}

func NewQuestNotifier(baseLog *logger.Logger, cfg GamificationConfig, emitter Emitter) QuestNotifier {
	return &questNotifier{
		log:     baseLog.With("service", "QuestNotifier"),
		cfg:     cfg,
		emitter: emitter,
	}
}

func (s *questNotifier) NotifyXPReward(userID uuid.UUID, amount int, reason string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["amount"] = amount
	data["reason"] = reason
	n := realtime.NewNotification(userID, realtime.NotificationXPReward,
		"Experience earned", reason, data)
	s.publishAsync(n)
}

func (s *questNotifier) NotifyQuestCompletion(userID uuid.UUID, quest *types.Quest, xpAwarded int) {
	n := realtime.NewNotification(userID, realtime.NotificationQuestCompletion,
		"Quest completed", "You completed "+quest.Title, map[string]any{
			"quest_id":    quest.ID.String(),
			"quest_title": quest.Title,
			"xp_awarded":  xpAwarded,
		})
	s.publishAsync(n)
}

func (s *questNotifier) NotifyBadgeAwarded(userID uuid.UUID, badge *types.Badge) {
	n := realtime.NewNotification(userID, realtime.NotificationBadgeAwarded,
		"Badge earned", "You earned the "+badge.Name+" badge", map[string]any{
			"badge_id":   badge.ID.String(),
			"badge_name": badge.Name,
			"image_url":  badge.ImageURL,
		})
	s.publishAsync(n)
}

func (s *questNotifier) NotifyBroadcast(template realtime.Notification, userIDs []uuid.UUID) {
	go func() {
		var g errgroup.Group
		g.SetLimit(8)
		for _, userID := range userIDs {
			n := template
			n.ID = uuid.New()
			n.UserID = userID
			g.Go(func() error {
				s.publishWithRetry(context.Background(), n)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// publishAsync spawns the retrying publish so the triggering request
// never waits on delivery. The goroutine owns its own context.
func (s *questNotifier) publishAsync(n realtime.Notification) {
	go s.publishWithRetry(context.Background(), n)
}

func (s *questNotifier) publishWithRetry(ctx context.Context, n realtime.Notification) {
	backoff := s.cfg.PublishBackoff
	for attempt := 1; attempt <= s.cfg.PublishAttempts; attempt++ {
		err := s.emitter.Emit(ctx, n)
		if err == nil {
			return
		}
		if attempt == s.cfg.PublishAttempts {
			s.log.Warn("giving up on notification publish",
				"type", string(n.Type), "user_id", n.UserID, "attempts", attempt, "error", err)
			return
		}
		s.log.Debug("notification publish failed; retrying",
			"type", string(n.Type), "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
