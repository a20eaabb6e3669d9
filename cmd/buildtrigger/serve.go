/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"chainguard.dev/buildtrigger/diag"
	"chainguard.dev/buildtrigger/enqueue"
	"chainguard.dev/buildtrigger/hook"
	"chainguard.dev/buildtrigger/reconciler"
	"chainguard.dev/buildtrigger/remote"
	"chainguard.dev/buildtrigger/scheduler"
	"chainguard.dev/buildtrigger/trigger"
	"chainguard.dev/go-grpc-kit/pkg/duplex"
	kmetrics "chainguard.dev/go-grpc-kit/pkg/metrics"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics"
	"github.com/chainguard-dev/terraform-infra-common/pkg/profiler"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Poll configured repositories and receive GitHub webhooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadEnv(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), env)
		},
	}
}

func serve(ctx context.Context, env *envConfig) error {
	go httpmetrics.ScrapeDiskUsage(ctx)
	profiler.SetupProfiler()
	defer httpmetrics.SetupTracer(ctx)()

	triggers, closer, err := env.triggers(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	client, err := env.client(ctx)
	if err != nil {
		return err
	}
	enq, err := env.enqueuer(ctx, client)
	if err != nil {
		return err
	}

	errs := diag.NewErrors()
	reg := trigger.NewRegistry(errs, triggers...)
	sched := scheduler.New(enq)
	for _, t := range triggers {
		sched.Add(reconciler.New(t, client, reconciler.WithErrors(errs)), t.Interval)
	}
	if env.WebhookSecret == "" {
		clog.WarnContext(ctx, "WEBHOOK_SECRET is not set; webhook signatures are not verified")
	}

	mux := http.NewServeMux()
	mux.Handle("POST /webhook/github", httpmetrics.Handler("webhook",
		hook.NewHandler(hook.NewDispatcher(reg), enq, []byte(env.WebhookSecret))))
	mux.Handle("GET /status", httpmetrics.Handler("status", statusHandler(reg, errs)))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", env.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	d := duplex.New(
		env.GRPCPort,
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainStreamInterceptor(kmetrics.StreamServerInterceptor()),
		grpc.ChainUnaryInterceptor(
			kmetrics.UnaryServerInterceptor(),
			recovery.UnaryServerInterceptor(),
		),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	healthgrpc.RegisterHealthServer(d.Server, health.NewServer())
	d.RegisterListenAndServeMetrics(env.MetricsPort, env.EnablePprof)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(ctx) })
	g.Go(func() error { return d.ListenAndServe(ctx) })
	g.Go(func() error {
		clog.InfoContextf(ctx, "Serving webhooks on port %d for %d triggers", env.Port, len(triggers))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// enqueuer publishes to NATS when NATS_URL is set and logs otherwise.
func (e *envConfig) enqueuer(ctx context.Context, client remote.Client) (enqueue.Enqueuer, error) {
	var enq enqueue.Enqueuer = enqueue.Log{}
	if e.NATSURL != "" {
		nc, err := enqueue.Connect(e.NATSURL)
		if err != nil {
			return nil, err
		}
		context.AfterFunc(ctx, nc.Close)
		enq = enqueue.Multi(enqueue.Log{}, enqueue.NewNATS(nc, e.NATSSubjectPrefix))
	}
	if e.PostPendingStatus {
		enq = enqueue.WithPendingStatus(enq, client)
	}
	return enq, nil
}

func statusHandler(reg *trigger.Registry, errs *diag.Errors) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		statuses, err := collectStatus(r.Context(), reg.All(), errs)
		if err != nil {
			clog.FromContext(r.Context()).Errorf("Collecting status: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(statuses); err != nil {
			clog.FromContext(r.Context()).Warnf("Writing status: %v", err)
		}
	})
}

func collectStatus(ctx context.Context, triggers []*trigger.Trigger, errs *diag.Errors) ([]trigger.Status, error) {
	out := make([]trigger.Status, 0, len(triggers))
	for _, t := range triggers {
		st, err := t.Status(ctx, errs)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}
