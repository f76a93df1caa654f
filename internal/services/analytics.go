package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/repos"
	"github.com/Jethrr/moodlequest-sub000/internal/types"
)

// CourseEngagementReport is the reporting read surface for one course.
type CourseEngagementReport struct {
	CourseID         uuid.UUID       `json:"course_id"`
	QuestCount       int             `json:"quest_count"`
	ParticipantCount int             `json:"participant_count"`
	StageCounts      map[string]int  `json:"stage_counts"`
	StartRate        float64         `json:"start_rate"`
	CompletionRate   float64         `json:"completion_rate"`
	MeanEngagement   float64         `json:"mean_engagement_score"`
	DailyActivity    []DailyActivity `json:"daily_activity"`
	HourHistogram    [24]int         `json:"hour_histogram"`
	EngagementTiers  EngagementTiers `json:"engagement_tiers"`
	WindowStart      time.Time       `json:"window_start"`
	WindowEnd        time.Time       `json:"window_end"`
}

type DailyActivity struct {
	Day                string `json:"day"`
	ActiveParticipants int    `json:"active_participants"`
	Completions        int    `json:"completions"`
}

// EngagementTiers splits progress records by engagement score:
// high >= 70, medium 30-69, low < 30.
type EngagementTiers struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

type AnalyticsService interface {
	CourseEngagement(ctx context.Context, courseID uuid.UUID, window time.Duration) (*CourseEngagementReport, error)
}

type analyticsService struct {
	db           *gorm.DB
	log          *logger.Logger
	questRepo    repos.QuestRepo
	progressRepo repos.QuestProgressRepo
	eventRepo    repos.EngagementEventRepo
	now          func() time.Time
}

func NewAnalyticsService(
	db *gorm.DB,
	baseLog *logger.Logger,
	questRepo repos.QuestRepo,
	progressRepo repos.QuestProgressRepo,
	eventRepo repos.EngagementEventRepo,
) AnalyticsService {
	return &analyticsService{
		db:           db,
		log:          baseLog.With("service", "AnalyticsService"),
		questRepo:    questRepo,
		progressRepo: progressRepo,
		eventRepo:    eventRepo,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *analyticsService) CourseEngagement(ctx context.Context, courseID uuid.UUID, window time.Duration) (*CourseEngagementReport, error) {
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	end := s.now()
	start := end.Add(-window)

	quests, err := s.questRepo.ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, err
	}
	questIDs := make([]uuid.UUID, 0, len(quests))
	for _, q := range quests {
		questIDs = append(questIDs, q.ID)
	}

	progresses, err := s.progressRepo.ListByQuestIDs(ctx, nil, questIDs)
	if err != nil {
		return nil, err
	}

	report := &CourseEngagementReport{
		CourseID:    courseID,
		QuestCount:  len(quests),
		StageCounts: map[string]int{},
		WindowStart: start,
		WindowEnd:   end,
	}

	progressIDs := make([]uuid.UUID, 0, len(progresses))
	progressUsers := make(map[uuid.UUID]uuid.UUID, len(progresses))
	participants := make(map[uuid.UUID]bool)
	started := 0
	completed := 0
	scoreSum := 0
	for _, p := range progresses {
		progressIDs = append(progressIDs, p.ID)
		progressUsers[p.ID] = p.UserID
		participants[p.UserID] = true

		report.StageCounts[p.Stage]++
		if types.StageRank(p.Stage) >= types.StageRank(types.StageStarted) {
			started++
		}
		if p.Stage == types.StageCompleted {
			completed++
		}
		scoreSum += p.EngagementScore

		switch {
		case p.EngagementScore >= 70:
			report.EngagementTiers.High++
		case p.EngagementScore >= 30:
			report.EngagementTiers.Medium++
		default:
			report.EngagementTiers.Low++
		}
	}
	report.ParticipantCount = len(participants)
	if len(progresses) > 0 {
		report.StartRate = float64(started) / float64(len(progresses))
		report.CompletionRate = float64(completed) / float64(len(progresses))
		report.MeanEngagement = float64(scoreSum) / float64(len(progresses))
	}

	events, err := s.eventRepo.ListByProgressIDsSince(ctx, nil, progressIDs, start)
	if err != nil {
		return nil, err
	}

	type dayBucket struct {
		users       map[uuid.UUID]bool
		completions int
	}
	days := map[string]*dayBucket{}
	bucket := func(day string) *dayBucket {
		b, ok := days[day]
		if !ok {
			b = &dayBucket{users: map[uuid.UUID]bool{}}
			days[day] = b
		}
		return b
	}

	for _, ev := range events {
		report.HourHistogram[ev.CreatedAt.UTC().Hour()]++
		day := ev.CreatedAt.UTC().Format("2006-01-02")
		if userID, ok := progressUsers[ev.QuestProgressID]; ok {
			bucket(day).users[userID] = true
		}
	}
	for _, p := range progresses {
		if p.CompletedAt == nil || p.CompletedAt.Before(start) {
			continue
		}
		bucket(p.CompletedAt.UTC().Format("2006-01-02")).completions++
	}

	dayKeys := make([]string, 0, len(days))
	for day := range days {
		dayKeys = append(dayKeys, day)
	}
	sort.Strings(dayKeys)
	for _, day := range dayKeys {
		b := days[day]
		report.DailyActivity = append(report.DailyActivity, DailyActivity{
			Day:                day,
			ActiveParticipants: len(b.users),
			Completions:        b.completions,
		})
	}

	return report, nil
}
