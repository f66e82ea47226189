// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-mdbook/linkkit/cmd/internal/loglevel"
	"k8s.io/klog/v2"
)

func main() {
	loglevel.Apply()
	defer klog.Flush()

	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		klog.Error(err)
		os.Exit(1)
	}
}
