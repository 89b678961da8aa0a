package cmd

import (
	"context"
	"fmt"

	"github.com/foomo/contactserver/pkg/handler"
	"github.com/foomo/keel"
	"github.com/foomo/keel/healthz"
	"github.com/foomo/keel/net/http/middleware"
	"github.com/foomo/keel/service"
	"github.com/spf13/cobra"
)

func NewHTTPCommand() *cobra.Command {
	v := newViper()
	// TODO: When keel is updated, set it in the correct place
	service.DefaultHTTPPProfAddr = ":6060"

	cmd := &cobra.Command{
		Use:   "http",
		Short: "Start http server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svr := keel.NewServer(
				keel.WithHTTPPrometheusService(servicePrometheusEnabledFlag(v)),
				keel.WithHTTPHealthzService(serviceHealthzEnabledFlag(v)),
				keel.WithPrometheusMeter(servicePrometheusEnabledFlag(v)),
				keel.WithGracefulPeriod(gracefulPeriodFlag(v)),
				keel.WithOTLPGRPCTracer(otelEnabledFlag(v)),
				keel.WithHTTPPProfService(servicePProfEnabledFlag(v)),
			)

			l := svr.Logger()

			s, err := openStore(cmd.Context(), v, l)
			if err != nil {
				return err
			}

			// the document must be readable before we take traffic
			isReadableHealthzerFn := healthz.NewHealthzerFn(func(ctx context.Context) error {
				_, err := s.LoadAll(ctx)
				return err
			})
			svr.AddStartupHealthzers(isReadableHealthzerFn)
			svr.AddReadinessHealthzers(isReadableHealthzerFn)

			svr.AddClosers(func(ctx context.Context) error {
				return s.Close()
			})

			h, err := handler.NewHTTP(l.Named("inst.handler"), s,
				handler.WithVersion(version),
				handler.WithAPIPrefix(apiPrefixFlag(v)),
			)
			if err != nil {
				return fmt.Errorf("failed to create handler: %w", err)
			}

			svr.AddServices(
				service.NewHTTP(l.Named("svc.http"), "http", addressFlag(v),
					h,
					middleware.Telemetry(),
					middleware.Logger(),
					middleware.GZip(middleware.GZipWithLevel(gzipLevelFlag(v))),
					middleware.Recover(),
				),
			)

			svr.Run()
			return nil
		},
	}

	flags := cmd.Flags()
	addAddressFlag(flags, v)
	addAPIPrefixFlag(flags, v)
	addStoreFlags(flags, v)
	addGracefulPeriodFlag(flags, v)
	addOtelEnabledFlag(flags, v)
	addServiceHealthzEnabledFlag(flags, v)
	addServicePrometheusEnabledFlag(flags, v)
	addServicePProfEnabledFlag(flags, v)
	addGzipLevelFlag(flags, v)

	return cmd
}
