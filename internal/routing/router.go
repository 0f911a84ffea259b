package routing

import (
	"fmt"
	"sort"

	"pulsegen/internal/config"
)

// Target is the delivery destination for one team: a bootstrap endpoint
// plus the topic envelopes for that team are appended to.
type Target struct {
	TeamID    string
	Bootstrap string
	Topic     string
}

// UnknownTeamError indicates routing was invoked with an id outside the
// validated set. Startup validation makes this an invariant violation,
// not a runtime path.
type UnknownTeamError struct {
	TeamID string
}

func (e *UnknownTeamError) Error() string {
	return fmt.Sprintf("unknown team %q", e.TeamID)
}

type Mode int

const (
	// ModeShared routes every team to one cluster and one topic; team ids
	// are logical labels only.
	ModeShared Mode = iota
	// ModeMulti gives every team its own cluster and topic; no two teams
	// share a destination.
	ModeMulti
)

func (m Mode) String() string {
	if m == ModeMulti {
		return "multi"
	}
	return "shared"
}

// Router resolves team ids to delivery targets. Resolution is pure and
// O(1); it never touches the network.
type Router struct {
	mode    Mode
	targets map[string]Target
}

// NewRouter builds the routing table from configuration. The table is
// immutable after construction.
func NewRouter(cfg *config.Config) (*Router, error) {
	r := &Router{targets: make(map[string]Target)}

	if cfg.MultiTeam() {
		r.mode = ModeMulti
		for teamID, bootstrap := range cfg.Kafka.TeamBootstrapServers {
			r.targets[teamID] = Target{
				TeamID:    teamID,
				Bootstrap: bootstrap,
				Topic:     topicForTeam(cfg.Kafka, teamID, false),
			}
		}
		return r, nil
	}

	r.mode = ModeShared
	shared := Target{
		Bootstrap: cfg.Kafka.BootstrapServers,
		Topic:     topicForTeam(cfg.Kafka, "", true),
	}
	for _, teamID := range cfg.Generator.Teams {
		target := shared
		target.TeamID = teamID
		r.targets[teamID] = target
	}

	return r, nil
}

// topicForTeam derives the destination topic. An explicit TOPIC takes
// precedence over prefix/suffix derivation in both modes (documented
// assumption; the derivation rule only applies when no override is set).
func topicForTeam(cfg config.KafkaConfig, teamID string, shared bool) string {
	if cfg.Topic != "" {
		return cfg.Topic
	}
	if shared {
		return cfg.TopicPrefix + cfg.TopicSuffix
	}
	return cfg.TopicPrefix + teamID + cfg.TopicSuffix
}

func (r *Router) Mode() Mode {
	return r.mode
}

// Resolve maps a team id to its target.
func (r *Router) Resolve(teamID string) (Target, error) {
	target, ok := r.targets[teamID]
	if !ok {
		return Target{}, &UnknownTeamError{TeamID: teamID}
	}
	return target, nil
}

// Teams returns the routable team ids in sorted order.
func (r *Router) Teams() []string {
	ids := make([]string, 0, len(r.targets))
	for id := range r.targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Router) TeamCount() int {
	return len(r.targets)
}
