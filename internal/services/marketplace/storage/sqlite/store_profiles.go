package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/skillswap/internal/services/marketplace/profile"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage"
)

const profileSelect = `
SELECT p.user_id, u.name, p.location, p.bio, p.availability_json, p.public,
  COALESCE((SELECT AVG(f.rating) FROM feedback f WHERE f.to_user_id = p.user_id), 0.0),
  (SELECT COUNT(1) FROM feedback f WHERE f.to_user_id = p.user_id)
FROM profiles p
JOIN users u ON u.id = p.user_id
`

// GetProfile loads one profile with its skills and rating aggregate.
func (s *Store) GetProfile(ctx context.Context, userID string) (profile.Profile, error) {
	if err := s.ready(ctx); err != nil {
		return profile.Profile{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return profile.Profile{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, profileSelect+`WHERE p.user_id = ?`, userID)
	p, err := scanProfile(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profile.Profile{}, storage.ErrNotFound
		}
		return profile.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if err := s.loadSkills(ctx, &p); err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

// PutProfile replaces the editable fields and skill lists of a profile.
func (s *Store) PutProfile(ctx context.Context, p profile.Profile, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	p.UserID = strings.TrimSpace(p.UserID)
	if p.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	availability := p.Availability
	if availability == nil {
		availability = []profile.Availability{}
	}
	availabilityJSON, err := json.Marshal(availability)
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}

	return s.withTx(ctx, "put profile", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
UPDATE profiles
SET location = ?, bio = ?, availability_json = ?, public = ?, updated_at = ?
WHERE user_id = ?
`, p.Location, p.Bio, string(availabilityJSON), boolToInt(p.Public), toMillis(at), p.UserID)
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("update profile rows affected: %w", err)
		}
		if affected == 0 {
			return storage.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM profile_skills WHERE user_id = ?`, p.UserID); err != nil {
			return fmt.Errorf("clear profile skills: %w", err)
		}
		if err := insertSkills(ctx, tx, p.UserID, profile.SkillsOffered, p.SkillsOffered); err != nil {
			return err
		}
		return insertSkills(ctx, tx, p.UserID, profile.SkillsWanted, p.SkillsWanted)
	})
}

// RemoveProfileSkill deletes a skill by its folded key and touches the profile.
func (s *Store) RemoveProfileSkill(ctx context.Context, userID string, kind profile.SkillKind, skill string, at time.Time) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	userID = strings.TrimSpace(userID)
	key := profile.SkillKey(skill)
	if userID == "" || key == "" {
		return false, storage.ErrNotFound
	}

	removed := false
	err := s.withTx(ctx, "remove profile skill", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
DELETE FROM profile_skills WHERE user_id = ? AND kind = ? AND skill_key = ?
`, userID, string(kind), key)
		if err != nil {
			return fmt.Errorf("delete profile skill: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete profile skill rows affected: %w", err)
		}
		removed = affected > 0

		touched, err := tx.ExecContext(ctx, `UPDATE profiles SET updated_at = ? WHERE user_id = ?`, toMillis(at), userID)
		if err != nil {
			return fmt.Errorf("touch profile: %w", err)
		}
		rows, err := touched.RowsAffected()
		if err != nil {
			return fmt.Errorf("touch profile rows affected: %w", err)
		}
		if rows == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func insertSkills(ctx context.Context, execer sqlExecer, userID string, kind profile.SkillKind, skills []string) error {
	for position, skill := range skills {
		if _, err := execer.ExecContext(ctx, `
INSERT INTO profile_skills (user_id, kind, position, skill, skill_key)
VALUES (?, ?, ?, ?, ?)
`, userID, string(kind), position, skill, profile.SkillKey(skill)); err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("duplicate %s skill %q", kind, skill)
			}
			return fmt.Errorf("insert profile skill: %w", err)
		}
	}
	return nil
}

// ListProfiles lists public profiles of active users ordered by name.
func (s *Store) ListProfiles(ctx context.Context, filter storage.ProfileFilter, limit int, offset int) (storage.Page[profile.Profile], error) {
	if err := s.ready(ctx); err != nil {
		return storage.Page[profile.Profile]{}, err
	}
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return storage.Page[profile.Profile]{}, err
	}

	clauses := []string{`p.public = 1`, `u.banned = 0`}
	var args []any
	if excluded := strings.TrimSpace(filter.ExcludeUserID); excluded != "" {
		clauses = append(clauses, `p.user_id <> ?`)
		args = append(args, excluded)
	}
	if key := strings.TrimSpace(filter.SkillKey); key != "" {
		clauses = append(clauses, `EXISTS (
  SELECT 1 FROM profile_skills ps
  WHERE ps.user_id = p.user_id AND ps.kind = ? AND ps.skill_key = ?
)`)
		args = append(args, string(profile.SkillsOffered), key)
	}
	if filter.Availability != "" {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM json_each(p.availability_json) WHERE json_each.value = ?)`)
		args = append(args, string(filter.Availability))
	}
	args = append(args, limit+1, offset)

	rows, err := s.sqlDB.QueryContext(ctx, profileSelect+`
WHERE `+strings.Join(clauses, " AND ")+`
ORDER BY u.name COLLATE NOCASE ASC, p.user_id ASC
LIMIT ? OFFSET ?
`, args...)
	if err != nil {
		return storage.Page[profile.Profile]{}, fmt.Errorf("list profiles: %w", err)
	}
	profiles := make([]profile.Profile, 0, limit+1)
	for rows.Next() {
		p, err := scanProfile(rows.Scan)
		if err != nil {
			_ = rows.Close()
			return storage.Page[profile.Profile]{}, fmt.Errorf("scan profile row: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return storage.Page[profile.Profile]{}, fmt.Errorf("iterate profile rows: %w", err)
	}
	_ = rows.Close()

	page := trimPage(profiles, limit)
	for i := range page.Items {
		if err := s.loadSkills(ctx, &page.Items[i]); err != nil {
			return storage.Page[profile.Profile]{}, err
		}
	}
	return page, nil
}

func (s *Store) loadSkills(ctx context.Context, p *profile.Profile) error {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT kind, skill FROM profile_skills WHERE user_id = ? ORDER BY kind, position
`, p.UserID)
	if err != nil {
		return fmt.Errorf("list profile skills: %w", err)
	}
	defer rows.Close()

	p.SkillsOffered = []string{}
	p.SkillsWanted = []string{}
	for rows.Next() {
		var kind string
		var skill string
		if err := rows.Scan(&kind, &skill); err != nil {
			return fmt.Errorf("scan profile skill: %w", err)
		}
		switch profile.SkillKind(kind) {
		case profile.SkillsOffered:
			p.SkillsOffered = append(p.SkillsOffered, skill)
		case profile.SkillsWanted:
			p.SkillsWanted = append(p.SkillsWanted, skill)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate profile skills: %w", err)
	}
	return nil
}

func scanProfile(scan scanner) (profile.Profile, error) {
	var p profile.Profile
	var availabilityJSON string
	var public int
	if err := scan(
		&p.UserID,
		&p.Name,
		&p.Location,
		&p.Bio,
		&availabilityJSON,
		&public,
		&p.RatingAverage,
		&p.RatingCount,
	); err != nil {
		return profile.Profile{}, err
	}
	p.Public = public != 0
	p.Availability = []profile.Availability{}
	if strings.TrimSpace(availabilityJSON) != "" {
		if err := json.Unmarshal([]byte(availabilityJSON), &p.Availability); err != nil {
			return profile.Profile{}, fmt.Errorf("decode availability: %w", err)
		}
	}
	return p, nil
}
