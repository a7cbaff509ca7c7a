package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
)

type reviewRepo struct{ s *Store }

func (r *reviewRepo) Upsert(_ context.Context, rv *models.Review) error {
	defer r.s.lock()()
	st := r.s.cur()
	key := reviewKey{target: rv.TargetType, id: rv.TargetID, user: rv.UserID}
	now := time.Now()
	if prev, ok := st.reviews[key]; ok {
		rv.ID, rv.CreatedAt = prev.ID, prev.CreatedAt
	} else {
		st.nextReview++
		rv.ID, rv.CreatedAt = st.nextReview, now
	}
	rv.UpdatedAt = now
	st.reviews[key] = *rv
	return nil
}

func (r *reviewRepo) ListByTarget(_ context.Context, target models.ReviewTarget, id uint) ([]models.Review, error) {
	defer r.s.lock()()
	var out []models.Review
	for k, rv := range r.s.cur().reviews {
		if k.target == target && k.id == id {
			out = append(out, rv)
		}
	}
	slices.SortFunc(out, func(a, b models.Review) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return int(b.ID) - int(a.ID)
	})
	return out, nil
}

type userRepo struct{ s *Store }

func (r *userRepo) FindByID(_ context.Context, id uint) (models.User, error) {
	defer r.s.lock()()
	u, ok := r.s.cur().users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return u, nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (models.User, error) {
	defer r.s.lock()()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.cur().users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (r *userRepo) Create(_ context.Context, u *models.User) error {
	defer r.s.lock()()
	st := r.s.cur()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range st.users {
		if existing.Email == u.Email {
			return repositories.ErrDuplicate
		}
	}
	st.nextUser++
	u.ID = st.nextUser
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	st.users[u.ID] = *u
	return nil
}

type sequenceRepo struct{ s *Store }

func (r *sequenceRepo) Next(_ context.Context, name string) (int64, error) {
	defer r.s.lock()()
	st := r.s.cur()
	st.seqs[name]++
	return st.seqs[name], nil
}
