package bus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscribers(t *testing.T) {
	b := New()

	var got []any
	b.Subscribe(TopicNewInsight, func(payload any) { got = append(got, payload) })
	b.Subscribe(TopicNewInsight, func(payload any) { got = append(got, payload) })

	b.Publish(TopicNewInsight, "payload")

	require.Equal(t, []any{"payload", "payload"}, got)
}

func TestPublishIsTopicScoped(t *testing.T) {
	b := New()

	calls := 0
	b.Subscribe(TopicInsightsUpdated, func(any) { calls++ })

	b.Publish(TopicNewInsight, nil)
	require.Equal(t, 0, calls)

	b.Publish(TopicInsightsUpdated, nil)
	require.Equal(t, 1, calls)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()

	calls := 0
	unsubscribe := b.Subscribe(TopicNewInsight, func(any) { calls++ })

	b.Publish(TopicNewInsight, nil)
	unsubscribe()
	b.Publish(TopicNewInsight, nil)

	require.Equal(t, 1, calls)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	b := New()
	require.NotPanics(t, func() { b.Publish(TopicNewInsight, nil) })
}
