package decision

import "context"

// ProtocolSpec rejects releases no enabled download client can fetch.
type ProtocolSpec struct {
	clients ProtocolLookup
}

// NewProtocolSpec creates the protocol rule.
func NewProtocolSpec(clients ProtocolLookup) *ProtocolSpec {
	return &ProtocolSpec{clients: clients}
}

func (s *ProtocolSpec) Name() string { return "protocol" }
func (s *ProtocolSpec) Priority() Priority { return PriorityDefault }

func (s *ProtocolSpec) Evaluate(_ context.Context, _ *Config, c *Candidate, _ *SearchContext) (Decision, error) {
	if !s.clients.HasProtocol(c.Release.Protocol) {
		return Reject(Temporary, "No download client is enabled for %s releases", c.Release.Protocol), nil
	}
	return Accept(), nil
}
