package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nsctl-go/hooks"
	"nsctl-go/nsconfig"
	"nsctl-go/nsprobe"
	"nsctl-go/nsregistry"
	"nsctl-go/orchestrator"
)

var spawnCmd = &cobra.Command{
	Use:   "spawn [--] <command> [args...]",
	Short: "Create namespaces and run a command inside them",
	Long: `spawn resolves the requested namespace combination against what the
running kernel supports, forks the process tree needed to create them, and
execs the given command (or an interactive shell if none is given) inside
the result.`,
	Args: cobra.ArbitraryArgs,
	RunE: runSpawn,
}

var (
	spawnNamespaces []string
	spawnNegative   []string
	spawnMapRoot    bool
	spawnNoMapRoot  bool
	spawnMountProc  bool
	spawnMountPoint string
	spawnNsBindDir  string
	spawnPropagation string
	spawnSetgroups   string
	spawnUsersMap    []string
	spawnGroupsMap   []string
	spawnInitProg    string
	spawnTTY         bool
	spawnDetach      bool
	spawnPermissive  bool
	spawnPreHook     string
	spawnPostHook    string
)

func init() {
	rootCmd.AddCommand(spawnCmd)

	spawnCmd.Flags().StringSliceVar(&spawnNamespaces, "namespace", nil, "namespace kind to enable (repeatable); default is every available kind")
	spawnCmd.Flags().StringSliceVar(&spawnNegative, "exclude", nil, "namespace kind to exclude (repeatable)")
	spawnCmd.Flags().BoolVar(&spawnMapRoot, "map-root", true, "map the caller to uid/gid 0 inside the user namespace")
	spawnCmd.Flags().BoolVar(&spawnNoMapRoot, "no-map-root", false, "disable --map-root")
	spawnCmd.Flags().BoolVar(&spawnMountProc, "mount-proc", true, "remount /proc inside the new pid namespace")
	spawnCmd.Flags().StringVar(&spawnMountPoint, "mount-point", "/proc", "mount point for the fresh procfs")
	spawnCmd.Flags().StringVar(&spawnNsBindDir, "ns-bind-dir", "", "directory to bind-pin the created namespaces under")
	spawnCmd.Flags().StringVar(&spawnPropagation, "propagation", "", "mount propagation preset: slave, private, shared, unchanged")
	spawnCmd.Flags().StringVar(&spawnSetgroups, "setgroups", "", "setgroups policy: allow or deny")
	spawnCmd.Flags().StringArrayVar(&spawnUsersMap, "map-user", nil, "uid map entry \"inner outer [length]\" (repeatable)")
	spawnCmd.Flags().StringArrayVar(&spawnGroupsMap, "map-group", nil, "gid map entry \"inner outer [length]\" (repeatable)")
	spawnCmd.Flags().StringVar(&spawnInitProg, "init-prog", "", "explicit init program to run as pid 1 instead of the built-in shim")
	spawnCmd.Flags().BoolVarP(&spawnTTY, "tty", "t", false, "allocate a pseudoterminal for the payload")
	spawnCmd.Flags().BoolVarP(&spawnDetach, "detach", "d", false, "do not wait for the spawned tree to exit")
	spawnCmd.Flags().BoolVar(&spawnPermissive, "permissive", false, "downgrade incoherent or unavailable requests instead of failing")
	spawnCmd.Flags().StringVar(&spawnPreHook, "pre-spawn-hook", "", "external command to run before namespaces are created")
	spawnCmd.Flags().StringVar(&spawnPostHook, "post-spawn-hook", "", "external command to run once namespaces are created")
}

func runSpawn(cmd *cobra.Command, args []string) error {
	ctx := GetContext()

	if err := nsprobe.Probe(); err != nil {
		return fmt.Errorf("probe namespace support: %w", err)
	}

	req := nsconfig.DefaultSpawnRequest()
	req.Interactive = !spawnDetach
	req.Strict = !spawnPermissive
	req.MapRoot = spawnMapRoot && !spawnNoMapRoot
	req.MountProc = spawnMountProc
	req.MountPoint = spawnMountPoint
	req.NsBindDir = spawnNsBindDir
	req.Nscmd = args
	req.InitProg = spawnInitProg
	req.TTY = spawnTTY
	req.UsersMap = spawnUsersMap
	req.GroupsMap = spawnGroupsMap

	for _, n := range spawnNamespaces {
		req.Namespaces = append(req.Namespaces, nsregistry.Kind(n))
	}
	for _, n := range spawnNegative {
		req.NegativeNamespaces = append(req.NegativeNamespaces, nsregistry.Kind(n))
	}
	if spawnPropagation != "" {
		p := nsconfig.Propagation(spawnPropagation)
		req.Propagation = &p
	}
	if spawnSetgroups != "" {
		s := nsconfig.Setgroups(spawnSetgroups)
		req.Setgroups = &s
	}

	plan, err := nsconfig.Resolve(req)
	if err != nil {
		return fmt.Errorf("resolve spawn request: %w", err)
	}

	hookSet := buildHookSet()

	result, err := orchestrator.Spawn(ctx, plan, hookSet)
	if err != nil {
		return fmt.Errorf("spawn: %w", err)
	}

	fmt.Fprintf(os.Stderr, "nsctl: top=%d bottom=%d grandchild=%d\n", result.TopPID, result.BottomPID, result.GrandchildPID)
	return nil
}

func buildHookSet() *hooks.Set {
	if spawnPreHook == "" && spawnPostHook == "" {
		return nil
	}
	set := hooks.NewSet()
	if spawnPreHook != "" {
		set.Add(hooks.PreSpawn, hooks.Hook{Path: spawnPreHook})
	}
	if spawnPostHook != "" {
		set.Add(hooks.PostSpawn, hooks.Hook{Path: spawnPostHook})
	}
	return set
}
