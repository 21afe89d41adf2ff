package reconcile

import (
	"context"
	"errors"

	"unionhall/models"
	"unionhall/snapshot"
)

var ErrMemberNotFound = errors.New("member not found")

func (s *Store) Members() []*models.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members
}

// Member returns the member with the given id, or nil.
func (s *Store) Member(id string) *models.Member {
	_, m := findMember(s.Members(), id)
	return m
}

// PendingMembers returns members waiting for approval, oldest signup first.
func (s *Store) PendingMembers() []*models.Member {
	var out []*models.Member
	members := s.Members()
	for i := len(members) - 1; i >= 0; i-- {
		if !members[i].IsApproved {
			out = append(out, members[i])
		}
	}
	return out
}

func findMember(members []*models.Member, id string) (int, *models.Member) {
	for i, m := range members {
		if m.ID == id {
			return i, m
		}
	}
	return -1, nil
}

func (s *Store) setMembers(members []*models.Member) {
	s.mu.Lock()
	s.members = members
	s.mu.Unlock()
	s.persist(snapshot.KeyMembers, members)
}

// AddMember records a member the remote has already created, newest first.
// Signup is remote-first, so there is nothing to write back.
func (s *Store) AddMember(m *models.Member) Outcome {
	if m == nil || m.ID == "" {
		return rejected(ErrMemberNotFound)
	}
	members := s.Members()
	if i, _ := findMember(members, m.ID); i >= 0 {
		out := append([]*models.Member(nil), members...)
		out[i] = m
		s.setMembers(out)
		return applied()
	}
	out := make([]*models.Member, 0, len(members)+1)
	out = append(out, m)
	s.setMembers(append(out, members...))
	return applied()
}

// DropMember forgets a member locally after the remote has already deleted
// it, as after a withdrawal.
func (s *Store) DropMember(id string) Outcome {
	members := s.Members()
	i, _ := findMember(members, id)
	if i < 0 {
		return rejected(ErrMemberNotFound)
	}
	out := make([]*models.Member, 0, len(members)-1)
	out = append(out, members[:i]...)
	s.setMembers(append(out, members[i+1:]...))
	return applied()
}

// ApproveMember marks a member approved.
func (s *Store) ApproveMember(ctx context.Context, id string) Outcome {
	members := s.Members()
	i, m := findMember(members, id)
	if i < 0 {
		return rejected(ErrMemberNotFound)
	}
	cp := *m
	cp.IsApproved = true
	out := append([]*models.Member(nil), members...)
	out[i] = &cp
	s.setMembers(out)
	return s.remoteWrite("approve member "+id, func(r Remote) error {
		return r.UpsertMember(ctx, &cp)
	})
}

// RemoveMember deletes a member outright; members have no trash.
func (s *Store) RemoveMember(ctx context.Context, id string) Outcome {
	if o := s.DropMember(id); o.Status == Rejected {
		return o
	}
	return s.remoteWrite("delete member "+id, func(r Remote) error {
		return r.DeleteMember(ctx, id)
	})
}

// Settings returns the site settings, or nil before the first load.
func (s *Store) Settings() *models.SiteSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings replaces the settings aggregate as a whole.
func (s *Store) UpdateSettings(ctx context.Context, settings models.SiteSettings) Outcome {
	cp := settings
	s.mu.Lock()
	s.settings = &cp
	s.mu.Unlock()
	s.persist(snapshot.KeySettings, &cp)
	return s.remoteWrite("upsert settings", func(r Remote) error {
		return r.UpsertSettings(ctx, &cp)
	})
}
