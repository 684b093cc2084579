package domain

import (
	"fmt"
	"strings"
)

type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
	ChannelPush  Channel = "PUSH"
	ChannelInApp Channel = "IN_APP"
)

var Channels = []Channel{ChannelEmail, ChannelSMS, ChannelPush, ChannelInApp}

func (c Channel) Valid() bool {
	for _, k := range Channels {
		if c == k {
			return true
		}
	}
	return false
}

func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown channel %q", ErrValidation, s)
	}
	return c, nil
}

func validateChannels(channels []Channel, required bool) error {
	if required && len(channels) == 0 {
		return fmt.Errorf("%w: at least one channel is required", ErrValidation)
	}
	seen := make(map[Channel]bool, len(channels))
	for _, c := range channels {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown channel %q", ErrValidation, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate channel %q", ErrValidation, c)
		}
		seen[c] = true
	}
	return nil
}
