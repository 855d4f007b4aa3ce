package netsrc

import (
	"netguard/internal/models"
	"netguard/internal/monitor/interfaces"
)

// FeedClassifier is an AccessClassifier fed by an in-process producer,
// standing in for the external packet-inspection pipeline. Feed drops
// records once the buffer is full rather than blocking the producer.
type FeedClassifier struct {
	ch chan models.AccessEvent
}

func NewFeedClassifier() *FeedClassifier {
	return &FeedClassifier{ch: make(chan models.AccessEvent, 1024)}
}

// NewAccessClassifier exposes the feed as the collaborator interface.
func NewAccessClassifier(fc *FeedClassifier) interfaces.AccessClassifier {
	return fc
}

func (fc *FeedClassifier) Events() <-chan models.AccessEvent {
	return fc.ch
}

func (fc *FeedClassifier) Feed(ev models.AccessEvent) bool {
	select {
	case fc.ch <- ev:
		return true
	default:
		return false
	}
}

func (fc *FeedClassifier) Close() {
	close(fc.ch)
}
