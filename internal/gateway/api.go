package gateway

import (
	"encoding/json"
	"net/http"

	"tgranger/pkg/models"
)

// The read API serves the dashboard's aggregate views. It never mutates
// state.

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ListGroups(r.Context())
	if err != nil {
		s.log.WithError(err).Error("group list failed")
		writeJSONError(w, http.StatusInternalServerError, "Failed to fetch groups")
		return
	}
	if groups == nil {
		groups = []models.Group{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupId")
	if groupID == "" {
		writeJSONError(w, http.StatusBadRequest, "groupId is required")
		return
	}

	members, err := s.store.MembersByGroup(r.Context(), groupID)
	if err != nil {
		s.log.WithError(err).WithField("group_id", groupID).Error("member list failed")
		writeJSONError(w, http.StatusInternalServerError, "Failed to fetch members")
		return
	}
	if members == nil {
		members = []models.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := s.store.TotalMembersCount(ctx)
	if err != nil {
		s.log.WithError(err).Error("stats query failed")
		writeJSONError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}

	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		s.log.WithError(err).Error("stats query failed")
		writeJSONError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}

	hidden := 0
	for _, g := range groups {
		n, err := s.store.HiddenMembersCount(ctx, g.GroupID)
		if err != nil {
			s.log.WithError(err).WithField("group_id", g.GroupID).Error("stats query failed")
			writeJSONError(w, http.StatusInternalServerError, "Failed to fetch stats")
			return
		}
		hidden += n
	}

	writeJSON(w, http.StatusOK, models.Stats{
		TotalGroups:    len(groups),
		TotalMembers:   total,
		HiddenMembers:  hidden,
		ActiveSessions: s.registry.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
