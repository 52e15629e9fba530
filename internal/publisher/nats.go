package publisher

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"route-simulator/internal/playback"
)

// NATSPublisher publishes the Samples of one playback session and listens for
// its control commands.
type NATSPublisher struct {
	nc          *nats.Conn
	prefix      string
	sessionID   string
	logSubjects bool
	metrics     PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, prefix, sessionID string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("route-simulator"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, prefix: prefix, sessionID: sessionID, logSubjects: logSubjects, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

// PositionMessage is the JSON body published for every Sample. The embedded
// Stats carries the fields stats panels read.
type PositionMessage struct {
	SessionID    string          `json:"sessionId"`
	Event        playback.Event  `json:"event"`
	Status       playback.Status `json:"status"`
	HeadingDeg   float64         `json:"headingDeg"`
	SegmentIndex int             `json:"segmentIndex"`
	PublishedAt  time.Time       `json:"publishedAt"`
	playback.Stats
}

func NewPositionMessage(sessionID string, s playback.Sample, now time.Time) PositionMessage {
	return PositionMessage{
		SessionID:    sessionID,
		Event:        s.Event,
		Status:       s.Status,
		HeadingDeg:   s.HeadingDeg,
		SegmentIndex: s.SegmentIndex,
		PublishedAt:  now,
		Stats:        s.Stats(),
	}
}

func (p *NATSPublisher) SampleSubject() string {
	return SampleSubject(p.prefix, p.sessionID)
}

func (p *NATSPublisher) ControlSubject() string {
	return ControlSubject(p.prefix, p.sessionID)
}

func (p *NATSPublisher) PublishSample(s playback.Sample) error {
	subject := p.SampleSubject()
	b, err := json.Marshal(NewPositionMessage(p.sessionID, s, time.Now().UTC()))
	if err != nil {
		return err
	}
	if p.logSubjects {
		log.Printf("nats publish subject=%s event=%s", subject, s.Event)
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

// OnSample publishes s, logging failures. Playback never stops on a publish
// error.
func (p *NATSPublisher) OnSample(s playback.Sample) {
	if err := p.PublishSample(s); err != nil {
		log.Printf("publish error for session %s: %v", p.sessionID, err)
	}
}

// SubscribeControl delivers decoded commands from the session's control
// subject. The handler runs on the NATS callback goroutine, so it must hand
// commands over to the playback loop rather than touch the controller.
func (p *NATSPublisher) SubscribeControl(handler func(Command)) (*nats.Subscription, error) {
	subject := p.ControlSubject()
	sub, err := p.nc.Subscribe(subject, func(msg *nats.Msg) {
		cmd, err := ParseCommand(msg.Data)
		if err != nil {
			log.Printf("ignoring control message on %s: %v", subject, err)
			return
		}
		handler(cmd)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	return sub, nil
}

func SampleSubject(prefix, sessionID string) string {
	return fmt.Sprintf("%s.%s.sample", subjectToken(prefix), subjectToken(sessionID))
}

func ControlSubject(prefix, sessionID string) string {
	return fmt.Sprintf("%s.%s.control", subjectToken(prefix), subjectToken(sessionID))
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
