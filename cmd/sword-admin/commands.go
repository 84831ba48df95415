package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sword/internal/platform/config"
	"sword/internal/platform/logger"
	"sword/internal/platform/store"
	"sword/internal/services/sword/admin"
	"sword/internal/services/sword/audit"
	"sword/internal/services/sword/repo"
)

var rootCmd = &cobra.Command{
	Use:   "sword-admin",
	Short: "Administer the SWORD repository",
	Long: `sword-admin manages the content a SWORD server deposits into.

Connection settings come from SERVICE_PGSQL_* and SERVICE_CLICKHOUSE_*,
the handle prefix from SWORD_HANDLE_PREFIX.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// session is what every subcommand works against
type session struct {
	st    *store.Store
	admin *admin.Admin
}

func open(ctx context.Context, withCH bool) (*session, error) {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	st, err := store.Open(ctx, store.Config{
		AppName: "sword-admin",
		PG: store.PGConfig{
			Enabled:        true,
			URL:            pgCfg.MustString("DBURL"),
			MaxConns:       2,
			ConnectRetries: 3,
		},
		CH: store.CHConfig{
			Enabled:    withCH && chCfg.MayBool("ENABLED", false),
			URL:        chCfg.MayString("DBURL", ""),
			ClientName: "sword",
			ClientTag:  "admin",
		},
	}, store.WithLogger(*logger.Get()))
	if err != nil {
		return nil, err
	}
	content, err := repo.NewPG(st.PG)
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}
	prefix := root.Prefix("SWORD_").MayString("HANDLE_PREFIX", "123456789")
	return &session{st: st, admin: admin.New(content, prefix)}, nil
}

// run opens a session, hands it to fn and closes it
func run(cmd *cobra.Command, withCH bool, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := open(ctx, withCH)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.st.Close(ctx); err != nil {
			logger.Get().Warn().Err(err).Msg("close store")
		}
	}()
	return fn(ctx, s)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the content schema and seed formats and the administrator group",
	Long: `Apply the postgres content schema, register the default bitstream formats
and create the Administrator group. When SERVICE_CLICKHOUSE_ENABLED is set the
deposit audit table is created as well. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, true, func(ctx context.Context, s *session) error {
			if err := repo.Bootstrap(ctx, s.st.PG); err != nil {
				return err
			}
			if s.st.CH != nil {
				if err := audit.NewClickHouse(s.st.CH).Migrate(ctx); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		})
	},
}

var epersonCmd = &cobra.Command{Use: "eperson", Short: "Manage users"}

var epersonAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a user",
	Long: `Register a user who can authenticate to the SWORD server.

Example:
  sword-admin eperson add --email dep@example.org --password secret --first Ada --last Lovelace`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		in := admin.NewEPerson{}
		in.Email, _ = f.GetString("email")
		in.NetID, _ = f.GetString("netid")
		in.FirstName, _ = f.GetString("first")
		in.LastName, _ = f.GetString("last")
		in.Password, _ = f.GetString("password")
		in.Admin, _ = f.GetBool("admin")
		if in.Password == "" {
			in.Password = os.Getenv("SWORD_ADMIN_PASSWORD")
		}
		return run(cmd, false, func(ctx context.Context, s *session) error {
			ep, err := s.admin.AddEPerson(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", ep.ID, ep.Email)
			return nil
		})
	},
}

var groupCmd = &cobra.Command{Use: "group", Short: "Manage groups"}

var groupAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, false, func(ctx context.Context, s *session) error {
			g, err := s.admin.AddGroup(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", g.ID, g.Name)
			return nil
		})
	},
}

var groupMemberCmd = &cobra.Command{
	Use:   "add-member GROUP EMAIL",
	Short: "Add a user to a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, false, func(ctx context.Context, s *session) error {
			return s.admin.AddGroupMember(ctx, args[0], args[1])
		})
	},
}

var communityCmd = &cobra.Command{Use: "community", Short: "Manage communities"}

var communityAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a community and mint its handle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, _ := cmd.Flags().GetString("parent")
		return run(cmd, false, func(ctx context.Context, s *session) error {
			c, err := s.admin.AddCommunity(ctx, args[0], parent)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.Handle, c.Name)
			return nil
		})
	},
}

var collectionCmd = &cobra.Command{Use: "collection", Short: "Manage collections"}

var collectionAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a collection inside a community and mint its handle",
	Long: `Create a collection inside a community.

Example:
  sword-admin collection add Theses --community 123456789/1 --workflow --license-file license.txt \
    --template dc.publisher="Graduate School" --template dc.type=Thesis`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		in := admin.NewCollection{Name: args[0]}
		in.CommunityHandle, _ = f.GetString("community")
		in.Description, _ = f.GetString("description")
		in.Workflow, _ = f.GetBool("workflow")
		in.Template, _ = f.GetStringArray("template")
		if path, _ := f.GetString("license-file"); path != "" {
			b, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			in.License = string(b)
		}
		return run(cmd, false, func(ctx context.Context, s *session) error {
			c, err := s.admin.AddCollection(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.Handle, c.Name)
			return nil
		})
	},
}

var policyCmd = &cobra.Command{Use: "policy", Short: "Manage resource policies"}

var policyGrantCmd = &cobra.Command{
	Use:   "grant HANDLE ACTION",
	Short: "Grant READ, WRITE, ADD, REMOVE or ADMIN on an object",
	Long: `Grant an action on the object behind HANDLE to a user or a group.
Depositing into a collection needs ADD; depositing into an item needs WRITE.

Example:
  sword-admin policy grant 123456789/2 ADD --email dep@example.org`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		group, _ := cmd.Flags().GetString("group")
		return run(cmd, false, func(ctx context.Context, s *session) error {
			return s.admin.Grant(ctx, args[0], args[1], email, group)
		})
	},
}

func init() {
	epersonAddCmd.Flags().String("email", "", "Email address, also the login name")
	epersonAddCmd.Flags().String("netid", "", "Directory id used by LDAP logins")
	epersonAddCmd.Flags().String("first", "", "First name")
	epersonAddCmd.Flags().String("last", "", "Last name")
	epersonAddCmd.Flags().String("password", "", "Password (or set SWORD_ADMIN_PASSWORD)")
	epersonAddCmd.Flags().Bool("admin", false, "Add the user to the Administrator group")
	_ = epersonAddCmd.MarkFlagRequired("email")

	communityAddCmd.Flags().String("parent", "", "Handle of the parent community")

	collectionAddCmd.Flags().String("community", "", "Handle of the owning community")
	collectionAddCmd.Flags().String("description", "", "Short description shown in service documents")
	collectionAddCmd.Flags().String("license-file", "", "Deposit license text")
	collectionAddCmd.Flags().Bool("workflow", false, "Route deposits through review before archiving")
	collectionAddCmd.Flags().StringArray("template", nil, "Item template value as field=value, repeatable")
	_ = collectionAddCmd.MarkFlagRequired("community")

	policyGrantCmd.Flags().String("email", "", "Grant to this user")
	policyGrantCmd.Flags().String("group", "", "Grant to this group")

	epersonCmd.AddCommand(epersonAddCmd)
	groupCmd.AddCommand(groupAddCmd, groupMemberCmd)
	communityCmd.AddCommand(communityAddCmd)
	collectionCmd.AddCommand(collectionAddCmd)
	policyCmd.AddCommand(policyGrantCmd)
	rootCmd.AddCommand(migrateCmd, epersonCmd, groupCmd, communityCmd, collectionCmd, policyCmd)
}
