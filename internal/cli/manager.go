package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	_ "k8s.io/client-go/plugin/pkg/client/auth"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/mrrauch/queue-operator/internal/common"
	"github.com/mrrauch/queue-operator/internal/config"
	"github.com/mrrauch/queue-operator/internal/controller"
)

type managerOptions struct {
	metricsAddr          string
	probeAddr            string
	enableLeaderElection bool
}

func newManagerCommand(cfg *config.Config) *cobra.Command {
	var opts managerOptions
	cmd := &cobra.Command{
		Use:   "manager",
		Short: "Run the controller that reconciles Queue resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManager(*cfg, opts)
		},
	}
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-bind-address", ":8080", "The address the metric endpoint binds to.")
	cmd.Flags().StringVar(&opts.probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	cmd.Flags().BoolVar(&opts.enableLeaderElection, "leader-elect", false,
		"Enable leader election for controller manager. "+
			"Enabling this will ensure there is only one active controller manager.")
	return cmd
}

func managerConfig(cfg config.Config, opts managerOptions) ctrl.Options {
	mgrOpts := ctrl.Options{
		Scheme:                 common.SetupScheme(),
		Metrics:                metricsserver.Options{BindAddress: opts.metricsAddr},
		HealthProbeBindAddress: opts.probeAddr,
		LeaderElection:         opts.enableLeaderElection,
		LeaderElectionID:       "queue-operator.queue.k8s.io",
	}
	if cfg.WatchNamespace != "" {
		mgrOpts.Cache = cache.Options{
			DefaultNamespaces: map[string]cache.Config{cfg.WatchNamespace: {}},
		}
	}
	return mgrOpts
}

func runManager(cfg config.Config, opts managerOptions) error {
	setupLog := ctrl.Log.WithName("setup")

	restConfig, err := ctrl.GetConfig()
	if err != nil {
		return fmt.Errorf("load kubeconfig: %w", err)
	}
	mgrOpts := managerConfig(cfg, opts)
	mgr, err := ctrl.NewManager(restConfig, mgrOpts)
	if err != nil {
		return fmt.Errorf("new manager: %w", err)
	}

	if err := (&controller.QueueReconciler{
		Client:       mgr.GetClient(),
		Scheme:       mgr.GetScheme(),
		DefaultImage: cfg.DefaultImage,
		RequeueAfter: cfg.RequeueAfter(),
	}).SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to create controller Queue: %w", err)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up health check: %w", err)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up ready check: %w", err)
	}

	setupLog.Info("starting manager", "watchNamespace", cfg.WatchNamespace, "defaultImage", cfg.DefaultImage)
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		return fmt.Errorf("problem running manager: %w", err)
	}
	return nil
}
