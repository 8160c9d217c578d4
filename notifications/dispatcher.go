// Package notifications fans a single event out to the in-app
// notification table, email, and the optional Kafka event stream. Every
// channel is best-effort: a failed send is logged and dropped, never
// surfaced to the operation that raised the event.
package notifications

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"

	"rentdesk/config"
	"rentdesk/database"
)

// Event is one notification to fan out.
type Event struct {
	UserID      uint   `json:"user_id"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Type        string `json:"type"`
	RelatedID   *uint  `json:"related_id,omitempty"`
	RelatedType string `json:"related_type,omitempty"`
	// Email overrides the recipient address; when empty the user's
	// stored address is used.
	Email string `json:"-"`
}

// Dispatcher runs the async worker pool for the external channels.
type Dispatcher struct {
	db       *gorm.DB
	dialer   *gomail.Dialer
	from     string
	writer   *kafka.Writer
	events   chan Event
	shutdown chan struct{}
	wg       sync.WaitGroup
}

var (
	std   *Dispatcher
	stdMu sync.RWMutex
)

// Init builds the process-wide dispatcher from config and starts its
// workers. SMTP and Kafka channels activate only when configured.
func Init(db *gorm.DB) {
	d := &Dispatcher{
		db:       db,
		from:     config.AppConfig.MailFrom,
		events:   make(chan Event, 1000),
		shutdown: make(chan struct{}),
	}

	if config.AppConfig.SMTPHost != "" {
		d.dialer = gomail.NewDialer(
			config.AppConfig.SMTPHost,
			config.AppConfig.SMTPPort,
			config.AppConfig.SMTPUser,
			config.AppConfig.SMTPPass,
		)
	}

	if config.AppConfig.KafkaBroker != "" {
		d.writer = &kafka.Writer{
			Addr:         kafka.TCP(config.AppConfig.KafkaBroker),
			Topic:        config.AppConfig.KafkaTopic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
		}
	}

	for i := 0; i < 4; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	stdMu.Lock()
	std = d
	stdMu.Unlock()

	logrus.Infof("Notification dispatcher started (email=%v kafka=%v)",
		d.dialer != nil, d.writer != nil)
}

// Shutdown drains the queue and stops the workers.
func Shutdown() {
	stdMu.Lock()
	d := std
	std = nil
	stdMu.Unlock()

	if d == nil {
		return
	}
	close(d.shutdown)
	d.wg.Wait()
	if d.writer != nil {
		if err := d.writer.Close(); err != nil {
			logrus.Warnf("Kafka writer close: %v", err)
		}
	}
}

// Notify records the in-app notification row and hands the event to the
// async channels. Safe to call before Init; only the in-app row is
// written then.
func Notify(ev Event) {
	stdMu.RLock()
	d := std
	stdMu.RUnlock()

	db := database.DB
	if d != nil {
		db = d.db
	}
	if db != nil {
		row := database.Notification{
			UserID:      ev.UserID,
			Title:       ev.Title,
			Message:     ev.Message,
			Type:        ev.Type,
			RelatedID:   ev.RelatedID,
			RelatedType: ev.RelatedType,
		}
		if err := db.Create(&row).Error; err != nil {
			logrus.Warnf("Failed to create notification record: %v", err)
		}
	}

	if d == nil {
		return
	}

	select {
	case d.events <- ev:
	default:
		logrus.Warn("Notification queue full, dropping external dispatch")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.events:
			d.deliver(ev)
		case <-d.shutdown:
			// drain what is already queued
			for {
				select {
				case ev := <-d.events:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	if d.dialer != nil {
		if err := d.sendEmail(ev); err != nil {
			logrus.Warnf("Email dispatch failed for user %d: %v", ev.UserID, err)
		}
	}
	if d.writer != nil {
		if err := d.publish(ev); err != nil {
			logrus.Warnf("Kafka dispatch failed for user %d: %v", ev.UserID, err)
		}
	}
}

func (d *Dispatcher) sendEmail(ev Event) error {
	to := ev.Email
	if to == "" {
		var user database.User
		if err := d.db.Select("email").First(&user, ev.UserID).Error; err != nil {
			return err
		}
		to = user.Email
	}

	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", ev.Title)
	m.SetBody("text/plain", ev.Message)

	return d.dialer.DialAndSend(m)
}

func (d *Dispatcher) publish(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Type),
		Value: payload,
	})
}
