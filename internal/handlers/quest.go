package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/requestdata"
	"github.com/Jethrr/moodlequest-sub000/internal/services"
)

type QuestHandler struct {
	log        *logger.Logger
	quests     services.QuestService
	experience services.ExperienceService
}

func NewQuestHandler(log *logger.Logger, quests services.QuestService, experience services.ExperienceService) *QuestHandler {
	return &QuestHandler{
		log:        log.With("Handler", "QuestHandler"),
		quests:     quests,
		experience: experience,
	}
}

type createQuestRequest struct {
	CourseID         uuid.UUID  `json:"course_id" binding:"required"`
	MoodleActivityID *int64     `json:"moodle_activity_id"`
	Title            string     `json:"title" binding:"required"`
	Description      string     `json:"description"`
	ExperienceReward int        `json:"experience_reward"`
	ValidationMode   string     `json:"validation_mode"`
	StartsAt         *time.Time `json:"starts_at"`
	EndsAt           *time.Time `json:"ends_at"`
}

func (h *QuestHandler) Create(c *gin.Context) {
	var req createQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	quest, err := h.quests.Create(c.Request.Context(), services.CreateQuestInput{
		CourseID:         req.CourseID,
		MoodleActivityID: req.MoodleActivityID,
		Title:            req.Title,
		Description:      req.Description,
		ExperienceReward: req.ExperienceReward,
		ValidationMode:   req.ValidationMode,
		StartsAt:         req.StartsAt,
		EndsAt:           req.EndsAt,
	})
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_quest", err)
		return
	}
	c.JSON(http.StatusCreated, quest)
}

func (h *QuestHandler) ListByCourse(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("courseID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	quests, err := h.quests.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"quests": quests})
}

// MyProgress returns every quest progress row for the caller.
func (h *QuestHandler) MyProgress(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	progress, err := h.quests.ProgressForUser(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "progress_lookup_failed", err)
		return
	}
	RespondOK(c, gin.H{"progress": progress})
}

func (h *QuestHandler) MyQuestProgress(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	questID, err := uuid.Parse(c.Param("questID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_quest_id", err)
		return
	}
	progress, err := h.quests.ProgressForUserQuest(c.Request.Context(), rd.UserID, questID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "progress_lookup_failed", err)
		return
	}
	if progress == nil {
		RespondError(c, http.StatusNotFound, "progress_not_found", nil)
		return
	}
	RespondOK(c, progress)
}

func (h *QuestHandler) ProgressEvents(c *gin.Context) {
	progressID, err := uuid.Parse(c.Param("progressID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_progress_id", err)
		return
	}
	events, err := h.quests.EventsForProgress(c.Request.Context(), progressID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "events_lookup_failed", err)
		return
	}
	RespondOK(c, gin.H{"events": events})
}

// MyExperience returns the caller's lifetime XP total with recent entries.
func (h *QuestHandler) MyExperience(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	total, err := h.experience.TotalForUser(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "experience_lookup_failed", err)
		return
	}
	recent, err := h.experience.RecentForUser(c.Request.Context(), rd.UserID, 20)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "experience_lookup_failed", err)
		return
	}
	RespondOK(c, gin.H{"total": total, "recent": recent})
}
