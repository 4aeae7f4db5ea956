package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (event-per-topic layout).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Event types emitted by the scheduling service.
const (
	EventCampaignCreated     = "scheduling.campaign.created.v1"
	EventAvailabilityUpdated = "scheduling.availability.updated.v1"
)
