package events

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("producer", func() {
	It("writes successfully", func() {
		w := newTestWriter()
		kp := NewEventProducer(w)

		Expect(kp.Write(context.TODO(), "kind1", bytes.NewReader([]byte("msg1")))).To(Succeed())
		Eventually(w.Len).Should(Equal(1))
		Expect(w.Get(0).Type()).To(Equal("kind1"))
		Expect(w.Get(0).Source()).To(Equal(eventSource))

		Expect(kp.Write(context.TODO(), "kind2", bytes.NewReader([]byte("msg2")))).To(Succeed())
		Eventually(w.Len).Should(Equal(2))

		Expect(kp.Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})

	It("flushes pending events on close", func() {
		w := newTestWriter()
		kp := NewEventProducer(w)

		for i := 0; i < 50; i++ {
			Expect(kp.WriteJSON(context.TODO(), DocumentStateChangedKind, DocumentStateChangedEvent{DocumentID: "d", From: "Pending", To: "Done"})).To(Succeed())
		}
		Expect(kp.Close()).To(Succeed())
		Expect(w.Len()).To(Equal(50))

		var payload DocumentStateChangedEvent
		Expect(json.Unmarshal(w.Get(0).Data(), &payload)).To(Succeed())
		Expect(payload.To).To(Equal("Done"))
	})

	It("writes to the configured topic", func() {
		w := newTestWriter()
		kp := NewEventProducer(w, WithOutputTopic("tracker.audit"))

		Expect(kp.Write(context.TODO(), DocumentDeletedKind, bytes.NewReader([]byte("{}")))).To(Succeed())
		Expect(kp.Close()).To(Succeed())

		Expect(w.topics).To(Equal([]string{"tracker.audit"}))
	})

	It("refuses events beyond the buffer capacity", func() {
		w := newTestWriter()
		w.gate = make(chan struct{})
		kp := NewEventProducer(w, WithBufferCapacity(1))

		// at most one event is held by the blocked writer and one in the buffer
		Expect(kp.Write(context.TODO(), "kind", bytes.NewReader([]byte("1")))).To(Succeed())
		_ = kp.Write(context.TODO(), "kind", bytes.NewReader([]byte("2")))
		Expect(kp.Write(context.TODO(), "kind", bytes.NewReader([]byte("3")))).To(MatchError(ErrBufferFull))

		close(w.gate)
		Expect(kp.Close()).To(Succeed())
		Expect(w.Len()).To(BeNumerically(">=", 1))
	})

	It("delivers events to an http sink", func() {
		received := make(chan string, 1)
		sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			received <- r.Header.Get("Ce-Type")
			w.WriteHeader(http.StatusAccepted)
		}))
		defer sink.Close()

		hw, err := NewHTTPWriter(sink.URL)
		Expect(err).To(BeNil())

		e := cloudevents.NewEvent()
		e.SetID("1")
		e.SetSource(eventSource)
		e.SetType(DocumentDeletedKind)
		Expect(hw.Write(context.TODO(), defaultTopic, e)).To(Succeed())
		Expect(<-received).To(Equal(DocumentDeletedKind))
	})

	It("reports undelivered events", func() {
		sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer sink.Close()

		hw, err := NewHTTPWriter(sink.URL)
		Expect(err).To(BeNil())

		e := cloudevents.NewEvent()
		e.SetID("1")
		e.SetSource(eventSource)
		e.SetType(DocumentDeletedKind)
		Expect(hw.Write(context.TODO(), defaultTopic, e)).NotTo(Succeed())
	})
})

type testwriter struct {
	lock     sync.Mutex
	messages []cloudevents.Event
	topics   []string
	gate     chan struct{}
	closed   bool
}

func newTestWriter() *testwriter {
	return &testwriter{messages: []cloudevents.Event{}}
}

func (t *testwriter) Write(ctx context.Context, topic string, e cloudevents.Event) error {
	if t.gate != nil {
		<-t.gate
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	t.messages = append(t.messages, e)
	t.topics = append(t.topics, topic)
	return nil
}

func (t *testwriter) Len() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.messages)
}

func (t *testwriter) Get(i int) cloudevents.Event {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.messages[i]
}

func (t *testwriter) Close(_ context.Context) error {
	t.closed = true
	return nil
}
