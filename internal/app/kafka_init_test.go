package app

import (
	"reflect"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSplitBrokers(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{" , ,", nil},
		{"localhost:9092", []string{"localhost:9092"}},
		{"b1:9092, b2:9092 ,b3:9092", []string{"b1:9092", "b2:9092", "b3:9092"}},
	}
	for _, tc := range cases {
		if got := splitBrokers(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("splitBrokers(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestInitKafkaProducerEmptyBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka")

	producer, err := initKafkaProducer("  ,  ", logger)
	if err != nil {
		t.Fatalf("blank broker list must be a no-op, got %v", err)
	}
	if producer != nil {
		t.Fatal("expected nil producer without brokers")
	}
}

func TestInitKafkaProducerUnreachableBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka")

	producer, err := initKafkaProducer("broker1:9999,broker2:9999", logger)
	if err == nil {
		t.Fatal("expected connection error for unreachable brokers")
	}
	if producer != nil {
		t.Fatal("expected nil producer on error")
	}

	// Ошибка подключения не должна ломать остановку.
	closeKafka(producer, logger)
}

func TestCloseKafkaNilProducer(t *testing.T) {
	closeKafka(nil, log.WithField("test", "kafka"))
}
