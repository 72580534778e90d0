package pubsub

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/pubsub"
	openbo "github.com/NewYaroslav/open-bo-api"
)

type EventService struct {
	client *Client
	logger openbo.Logger
}

func NewEventService(client *Client, logger openbo.Logger) *EventService {
	return &EventService{client, logger}
}

func (es *EventService) Publish(event *openbo.Event) {
	es.publishOnNotificationsTopic(context.TODO(), event)
}

func (es *EventService) publishOnNotificationsTopic(
	ctx context.Context,
	event *openbo.Event,
) {
	topicLogger := es.logger.WithField("topic", "notifications")

	messageData, err := json.Marshal(&notificationEvent{
		Holder:  event.HolderName,
		Payload: event.Payload,
	})
	if err != nil {
		topicLogger.Errorf("could not marshal ledger event: [%v]", err)
		return
	}

	es.publishOnTopic(
		ctx,
		es.client.notificationsTopic,
		messageData,
		topicLogger,
	)
}

func (es *EventService) publishOnTopic(
	ctx context.Context,
	topic *pubsub.Topic,
	messageData []byte,
	topicLogger openbo.Logger,
) {
	result := topic.Publish(ctx, &pubsub.Message{
		Data: messageData,
	})

	go func() {
		id, err := result.Get(ctx)
		if err != nil {
			topicLogger.Errorf(
				"could not publish ledger event: [%v]",
				err,
			)
			return
		}

		topicLogger.Infof("published ledger event with ID: [%v]", id)
	}()
}

type notificationEvent struct {
	Holder  string
	Payload string
}
