package main

import (
	"context"
	"fmt"

	"github.com/a-h/chatstream"
)

type VersionCommand struct{}

func (c VersionCommand) Run(ctx context.Context) (err error) {
	_, err = fmt.Printf("chatstream %s\n", chatstream.Version)
	return err
}
