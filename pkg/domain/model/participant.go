package model

import (
	"sort"

	"github.com/m-mizutani/relnotify/pkg/domain/types"
)

// Reason explains why a participant receives a notification
type Reason string

const (
	ReasonCommitted     Reason = "committed"
	ReasonDeploySetting Reason = "deploy_setting"
)

// Participant is a user who should receive a notification
type Participant struct {
	User   *User
	Reason Reason
}

// Participants maps recipients to their participation
type Participants map[types.UserID]*Participant

// Reasons returns the reason for each participant
func (x Participants) Reasons() map[types.UserID]Reason {
	resp := make(map[types.UserID]Reason, len(x))
	for id, p := range x {
		resp[id] = p.Reason
	}
	return resp
}

// Sorted returns participants ordered by user ID
func (x Participants) Sorted() []*Participant {
	resp := make([]*Participant, 0, len(x))
	for _, p := range x {
		resp = append(resp, p)
	}
	sort.Slice(resp, func(i, j int) bool {
		return resp[i].User.ID < resp[j].User.ID
	})
	return resp
}
