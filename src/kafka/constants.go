package kafka

import (
	"fmt"
	"strings"
)

type ACKS int

const (
	ACKsAll    ACKS = -1
	ACKsLeader ACKS = 1
	ACKsNone   ACKS = 0
)

// ParseACKs traduce el valor de la configuración: all, leader, none o su número.
func ParseACKs(value string) (ACKS, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "all", "-1":
		return ACKsAll, nil
	case "leader", "1":
		return ACKsLeader, nil
	case "none", "0":
		return ACKsNone, nil
	}
	return 0, fmt.Errorf("invalid acks value %q: use all, leader or none", value)
}

func IsNotValidACKs(acks ACKS) bool {
	return acks != ACKsAll &&
		acks != ACKsLeader &&
		acks != ACKsNone
}

type TopicStatus string

const (
	TopicStatusCreated       TopicStatus = "created"
	TopicStatusAlreadyExists TopicStatus = "already_exists"
	TopicStatusFailed        TopicStatus = "failed"
)
