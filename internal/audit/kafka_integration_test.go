//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"seedfund/internal/audit"
	"seedfund/pkg/testutil/containers"
)

const testTopic = "seedfund.audit.test"

type KafkaSinkSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	sink     *audit.KafkaSink
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.redpanda = containers.NewRedpandaContainer(s.T())

	sink, err := audit.NewKafkaSink(context.Background(), []string{s.redpanda.Broker}, testTopic)
	s.Require().NoError(err)
	s.sink = sink
}

func (s *KafkaSinkSuite) TearDownSuite() {
	if s.sink != nil {
		s.sink.Close()
	}
}

func (s *KafkaSinkSuite) TestAppendProducesKeyedEvent() {
	ctx := context.Background()

	event := audit.Event{
		Timestamp:     time.Now().UTC().Truncate(time.Second),
		Action:        audit.ActionPaymentConfirmed,
		InvestorID:    "inv-42",
		TransactionID: "tx-42",
		Rail:          "crypto",
		Amount:        "25000",
	}
	s.Require().NoError(s.sink.Append(ctx, event))

	records := s.consume(ctx, "inv-42", 1)
	s.Require().Len(records, 1)

	s.Equal("inv-42", string(records[0].Key), "events are keyed by investor for partition ordering")

	var got audit.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(event.Action, got.Action)
	s.Equal(event.TransactionID, got.TransactionID)
	s.Equal(event.Amount, got.Amount)
	s.True(event.Timestamp.Equal(got.Timestamp))
}

func (s *KafkaSinkSuite) TestSameInvestorEventsStayOrdered() {
	ctx := context.Background()

	actions := []audit.Action{
		audit.ActionInvestmentInitiated,
		audit.ActionPaymentConfirmed,
		audit.ActionTokensMinted,
	}
	for _, action := range actions {
		err := s.sink.Append(ctx, audit.Event{
			Timestamp:  time.Now().UTC(),
			Action:     action,
			InvestorID: "inv-ordered",
		})
		s.Require().NoError(err)
	}

	var got []audit.Action
	for _, record := range s.consume(ctx, "inv-ordered", len(actions)) {
		var event audit.Event
		s.Require().NoError(json.Unmarshal(record.Value, &event))
		got = append(got, event.Action)
	}
	s.Equal(actions, got)
}

func (s *KafkaSinkSuite) TestSinkCreationIsIdempotent() {
	// A second sink against the same topic must not fail on topic-exists.
	sink, err := audit.NewKafkaSink(context.Background(), []string{s.redpanda.Broker}, testTopic)
	s.Require().NoError(err)
	sink.Close()
}

// consume reads the topic from the start and returns the first n records keyed
// by the given investor. The topic is shared between tests, so filtering by
// key keeps them isolated.
func (s *KafkaSinkSuite) consume(ctx context.Context, key string, n int) []*kgo.Record {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer client.Close()

	deadline, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var records []*kgo.Record
	for len(records) < n {
		fetches := client.PollFetches(deadline)
		s.Require().NoError(fetches.Err())
		for _, record := range fetches.Records() {
			if string(record.Key) == key {
				records = append(records, record)
			}
		}
	}
	return records
}
