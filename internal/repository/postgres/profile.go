package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/devconnect/api/internal/domain"
	"github.com/devconnect/api/internal/repository"
)

const profileColumns = `id, user_id, company, website, location, bio, status, github_username, skills,
	youtube, twitter, facebook, linkedin, instagram, updated_at`

// UpsertProfile creates the user's profile or replaces its fields. The
// profile id and its experience/education rows survive an update.
func (r *Repository) UpsertProfile(ctx context.Context, profile *domain.Profile) error {
	const query = `INSERT INTO profiles (id, user_id, company, website, location, bio, status, github_username, skills,
			youtube, twitter, facebook, linkedin, instagram, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (user_id) DO UPDATE SET
			company = EXCLUDED.company,
			website = EXCLUDED.website,
			location = EXCLUDED.location,
			bio = EXCLUDED.bio,
			status = EXCLUDED.status,
			github_username = EXCLUDED.github_username,
			skills = EXCLUDED.skills,
			youtube = EXCLUDED.youtube,
			twitter = EXCLUDED.twitter,
			facebook = EXCLUDED.facebook,
			linkedin = EXCLUDED.linkedin,
			instagram = EXCLUDED.instagram,
			updated_at = EXCLUDED.updated_at`
	_, err := r.pool.Exec(ctx, query,
		profile.ID, profile.UserID, profile.Company, profile.Website, profile.Location,
		profile.Bio, profile.Status, profile.GithubUsername, profile.Skills,
		profile.Social.Youtube, profile.Social.Twitter, profile.Social.Facebook,
		profile.Social.Linkedin, profile.Social.Instagram, profile.UpdatedAt)
	return err
}

// GetProfileByUserID fetches a profile with its experience and education.
func (r *Repository) GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	const query = `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`
	row := r.pool.QueryRow(ctx, query, userID)
	profile, err := scanProfile(row)
	if err != nil {
		return nil, err
	}
	if err := r.attachEntries(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// ListProfiles returns all profiles with their experience and education.
func (r *Repository) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	const query = `SELECT ` + profileColumns + ` FROM profiles ORDER BY updated_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]domain.Profile, 0)
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range profiles {
		if err := r.attachEntries(ctx, &profiles[i]); err != nil {
			return nil, err
		}
	}
	return profiles, nil
}

// DeleteProfileByUserID removes the user's profile; entries cascade.
func (r *Repository) DeleteProfileByUserID(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID)
	return err
}

// AddExperience inserts a work history entry.
func (r *Repository) AddExperience(ctx context.Context, exp *domain.Experience) error {
	const query = `INSERT INTO profile_experience (id, profile_id, title, company, location, from_date, to_date, current, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query, exp.ID, exp.ProfileID, exp.Title, exp.Company, exp.Location, exp.From, exp.To, exp.Current, exp.Description)
	return err
}

// DeleteExperience removes the entry addressed by its own id, scoped to the profile.
func (r *Repository) DeleteExperience(ctx context.Context, profileID, experienceID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM profile_experience WHERE profile_id = $1 AND id = $2`, profileID, experienceID)
	if err != nil {
		return asNotFound(err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AddEducation inserts a schooling entry.
func (r *Repository) AddEducation(ctx context.Context, edu *domain.Education) error {
	const query = `INSERT INTO profile_education (id, profile_id, school, degree, field_of_study, from_date, to_date, current, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query, edu.ID, edu.ProfileID, edu.School, edu.Degree, edu.FieldOfStudy, edu.From, edu.To, edu.Current, edu.Description)
	return err
}

// DeleteEducation removes the entry addressed by its own id, scoped to the profile.
func (r *Repository) DeleteEducation(ctx context.Context, profileID, educationID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM profile_education WHERE profile_id = $1 AND id = $2`, profileID, educationID)
	if err != nil {
		return asNotFound(err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) attachEntries(ctx context.Context, profile *domain.Profile) error {
	expRows, err := r.pool.Query(ctx, `SELECT id, profile_id, title, company, location, from_date, to_date, current, description
		FROM profile_experience WHERE profile_id = $1 ORDER BY from_date DESC`, profile.ID)
	if err != nil {
		return err
	}
	defer expRows.Close()
	profile.Experience = make([]domain.Experience, 0)
	for expRows.Next() {
		var e domain.Experience
		if err := expRows.Scan(&e.ID, &e.ProfileID, &e.Title, &e.Company, &e.Location, &e.From, &e.To, &e.Current, &e.Description); err != nil {
			return err
		}
		profile.Experience = append(profile.Experience, e)
	}
	if err := expRows.Err(); err != nil {
		return err
	}

	eduRows, err := r.pool.Query(ctx, `SELECT id, profile_id, school, degree, field_of_study, from_date, to_date, current, description
		FROM profile_education WHERE profile_id = $1 ORDER BY from_date DESC`, profile.ID)
	if err != nil {
		return err
	}
	defer eduRows.Close()
	profile.Education = make([]domain.Education, 0)
	for eduRows.Next() {
		var e domain.Education
		if err := eduRows.Scan(&e.ID, &e.ProfileID, &e.School, &e.Degree, &e.FieldOfStudy, &e.From, &e.To, &e.Current, &e.Description); err != nil {
			return err
		}
		profile.Education = append(profile.Education, e)
	}
	return eduRows.Err()
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	if err := row.Scan(&p.ID, &p.UserID, &p.Company, &p.Website, &p.Location, &p.Bio, &p.Status, &p.GithubUsername, &p.Skills,
		&p.Social.Youtube, &p.Social.Twitter, &p.Social.Facebook, &p.Social.Linkedin, &p.Social.Instagram, &p.UpdatedAt); err != nil {
		return nil, asNotFound(err)
	}
	return &p, nil
}
