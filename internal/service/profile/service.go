package profile

import (
	"context"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/devconnect/api/internal/domain"
	"github.com/devconnect/api/internal/repository"
)

const dateLayout = "2006-01-02"

// Service orchestrates profile management and account deletion.
type Service struct {
	profiles repository.ProfileRepository
	users    repository.UserRepository
	posts    repository.PostRepository
	logger   *slog.Logger
}

// New constructs a profile service.
func New(profiles repository.ProfileRepository, users repository.UserRepository, posts repository.PostRepository, logger *slog.Logger) Service {
	return Service{profiles: profiles, users: users, posts: posts, logger: logger}
}

// UpsertInput carries the create-or-update payload. Skills is a comma
// separated list.
type UpsertInput struct {
	Company        string `json:"company"`
	Website        string `json:"website"`
	Location       string `json:"location"`
	Bio            string `json:"bio"`
	Status         string `json:"status"`
	GithubUsername string `json:"github_username"`
	Skills         string `json:"skills"`
	Youtube        string `json:"youtube"`
	Twitter        string `json:"twitter"`
	Facebook       string `json:"facebook"`
	Linkedin       string `json:"linkedin"`
	Instagram      string `json:"instagram"`
}

// ExperienceInput carries a work history entry. Dates use YYYY-MM-DD.
type ExperienceInput struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	From        string `json:"from"`
	To          string `json:"to"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
}

// EducationInput carries a schooling entry. Dates use YYYY-MM-DD.
type EducationInput struct {
	School       string `json:"school"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"field_of_study"`
	From         string `json:"from"`
	To           string `json:"to"`
	Current      bool   `json:"current"`
	Description  string `json:"description"`
}

// Me returns the caller's profile.
func (s Service) Me(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.profiles.GetProfileByUserID(ctx, userID)
}

// Upsert creates the caller's profile or replaces its fields, preserving
// existing experience and education entries.
func (s Service) Upsert(ctx context.Context, userID string, input UpsertInput) (*domain.Profile, error) {
	var problems []string
	if strings.TrimSpace(input.Status) == "" {
		problems = append(problems, "Status is required")
	}
	skills := splitSkills(input.Skills)
	if len(skills) == 0 {
		problems = append(problems, "At least one skill is required")
	}
	if err := domain.Validation(problems); err != nil {
		return nil, err
	}

	profile := &domain.Profile{
		ID:             uuid.NewString(),
		UserID:         userID,
		Company:        strings.TrimSpace(input.Company),
		Website:        strings.TrimSpace(input.Website),
		Location:       strings.TrimSpace(input.Location),
		Bio:            strings.TrimSpace(input.Bio),
		Status:         strings.TrimSpace(input.Status),
		GithubUsername: strings.TrimSpace(input.GithubUsername),
		Skills:         skills,
		Social: domain.SocialLinks{
			Youtube:   strings.TrimSpace(input.Youtube),
			Twitter:   strings.TrimSpace(input.Twitter),
			Facebook:  strings.TrimSpace(input.Facebook),
			Linkedin:  strings.TrimSpace(input.Linkedin),
			Instagram: strings.TrimSpace(input.Instagram),
		},
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.profiles.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	s.logger.Info("profile upserted", "user_id", userID)
	return s.profiles.GetProfileByUserID(ctx, userID)
}

// List returns every profile on the network.
func (s Service) List(ctx context.Context) ([]domain.Profile, error) {
	return s.profiles.ListProfiles(ctx)
}

// ByUser returns the profile belonging to the given user.
func (s Service) ByUser(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.profiles.GetProfileByUserID(ctx, userID)
}

// DeleteAccount removes the caller's posts, profile and user record.
func (s Service) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.posts.DeletePostsByUser(ctx, userID); err != nil {
		return err
	}
	if err := s.profiles.DeleteProfileByUserID(ctx, userID); err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("account deleted", "user_id", userID)
	return nil
}

// AddExperience appends a work history entry to the caller's profile.
func (s Service) AddExperience(ctx context.Context, userID string, input ExperienceInput) (*domain.Profile, error) {
	var problems []string
	if strings.TrimSpace(input.Title) == "" {
		problems = append(problems, "Title is required")
	}
	if strings.TrimSpace(input.Company) == "" {
		problems = append(problems, "Company is required")
	}
	from, to, dateProblems := parseDates(input.From, input.To)
	problems = append(problems, dateProblems...)
	if err := domain.Validation(problems); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	exp := &domain.Experience{
		ID:          uuid.NewString(),
		ProfileID:   profile.ID,
		Title:       strings.TrimSpace(input.Title),
		Company:     strings.TrimSpace(input.Company),
		Location:    strings.TrimSpace(input.Location),
		From:        from,
		To:          to,
		Current:     input.Current,
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.profiles.AddExperience(ctx, exp); err != nil {
		return nil, err
	}
	return s.profiles.GetProfileByUserID(ctx, userID)
}

// DeleteExperience removes the entry with the given id from the caller's
// profile. Scoping the delete to the caller's profile is the ownership check.
func (s Service) DeleteExperience(ctx context.Context, userID, experienceID string) (*domain.Profile, error) {
	profile, err := s.profiles.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.DeleteExperience(ctx, profile.ID, experienceID); err != nil {
		return nil, err
	}
	return s.profiles.GetProfileByUserID(ctx, userID)
}

// AddEducation appends a schooling entry to the caller's profile.
func (s Service) AddEducation(ctx context.Context, userID string, input EducationInput) (*domain.Profile, error) {
	var problems []string
	if strings.TrimSpace(input.School) == "" {
		problems = append(problems, "School is required")
	}
	if strings.TrimSpace(input.Degree) == "" {
		problems = append(problems, "Degree is required")
	}
	if strings.TrimSpace(input.FieldOfStudy) == "" {
		problems = append(problems, "Field of study is required")
	}
	from, to, dateProblems := parseDates(input.From, input.To)
	problems = append(problems, dateProblems...)
	if err := domain.Validation(problems); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	edu := &domain.Education{
		ID:           uuid.NewString(),
		ProfileID:    profile.ID,
		School:       strings.TrimSpace(input.School),
		Degree:       strings.TrimSpace(input.Degree),
		FieldOfStudy: strings.TrimSpace(input.FieldOfStudy),
		From:         from,
		To:           to,
		Current:      input.Current,
		Description:  strings.TrimSpace(input.Description),
	}
	if err := s.profiles.AddEducation(ctx, edu); err != nil {
		return nil, err
	}
	return s.profiles.GetProfileByUserID(ctx, userID)
}

// DeleteEducation removes the entry with the given id from the caller's profile.
func (s Service) DeleteEducation(ctx context.Context, userID, educationID string) (*domain.Profile, error) {
	profile, err := s.profiles.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.DeleteEducation(ctx, profile.ID, educationID); err != nil {
		return nil, err
	}
	return s.profiles.GetProfileByUserID(ctx, userID)
}

func splitSkills(raw string) []string {
	parts := strings.Split(raw, ",")
	skills := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			skills = append(skills, trimmed)
		}
	}
	return skills
}

func parseDates(fromRaw, toRaw string) (time.Time, *time.Time, []string) {
	var problems []string
	var from time.Time
	if strings.TrimSpace(fromRaw) == "" {
		problems = append(problems, "From date is required")
	} else {
		parsed, err := time.Parse(dateLayout, strings.TrimSpace(fromRaw))
		if err != nil {
			problems = append(problems, "From date is required")
		} else {
			from = parsed
		}
	}
	var to *time.Time
	if strings.TrimSpace(toRaw) != "" {
		parsed, err := time.Parse(dateLayout, strings.TrimSpace(toRaw))
		if err != nil {
			problems = append(problems, "To date must use YYYY-MM-DD")
		} else {
			to = &parsed
		}
	}
	return from, to, problems
}
