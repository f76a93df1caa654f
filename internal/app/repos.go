package app

import (
	"gorm.io/gorm"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/repos"
)

type Repos struct {
	User            repos.UserRepo
	Course          repos.CourseRepo
	Quest           repos.QuestRepo
	QuestProgress   repos.QuestProgressRepo
	EngagementEvent repos.EngagementEventRepo
	Experience      repos.ExperienceRepo
	StudentProgress repos.StudentProgressRepo
	Badge           repos.BadgeRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:            repos.NewUserRepo(db, log),
		Course:          repos.NewCourseRepo(db, log),
		Quest:           repos.NewQuestRepo(db, log),
		QuestProgress:   repos.NewQuestProgressRepo(db, log),
		EngagementEvent: repos.NewEngagementEventRepo(db, log),
		Experience:      repos.NewExperienceRepo(db, log),
		StudentProgress: repos.NewStudentProgressRepo(db, log),
		Badge:           repos.NewBadgeRepo(db, log),
	}
}
