// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edgeo/bacnet-server/bacnet"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local BACnet device until interrupted",
	Long: `serve brings up the local device's UDP link, starts the worker that
runs transaction cleanup, and blocks until SIGINT or SIGTERM. Inbound
ReadProperty and WriteProperty requests are answered against the object
tree configured by the other flags; an inbound Who-Is is ignored.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	srv, err := createServer()
	if err != nil {
		return err
	}
	defer bacnet.DeleteServer(srv.Instance())

	if err := srv.Start(bacnetPort); err != nil {
		return err
	}
	defer srv.Stop()

	logger.Info("device started",
		zap.Uint32("instance", srv.Instance()),
		zap.String("local", localAddress),
		zap.Uint16("port", bacnetPort),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if metricsAddr != "" {
		go func() {
			logger.Info("metrics server starting", zap.String("addr", metricsAddr))
			if err := srv.MetricsHandle().Serve(ctx, metricsAddr); err != nil {
				logger.Error("metrics server exited", zap.Error(err))
			}
		}()
	}

	go logEvents(ctx, srv)

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func logEvents(ctx context.Context, srv *bacnet.Server) {
	events := srv.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case bacnet.ReadRequestEvent:
				logger.Debug("read property", zap.String("oid", e.OID.String()), zap.Uint32("pid", uint32(e.PID)))
			case bacnet.WriteRequestEvent:
				logger.Debug("write property", zap.Uint32("pid", uint32(e.PID)))
			case bacnet.IAmEvent:
				logger.Info("i-am received", zap.Uint32("instance", e.Instance))
			case bacnet.ErrorEvent:
				logger.Warn("transaction error", zap.String("handle", e.TransactionHandle.String()))
			}
		}
	}
}
