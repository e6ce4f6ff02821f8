package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stylelinks/internal/access"
	"stylelinks/internal/app"
	"stylelinks/internal/config"
	"stylelinks/internal/db"
	"stylelinks/internal/engine"
	"stylelinks/internal/enhancer"
	"stylelinks/internal/logging"
	"stylelinks/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "sl",
	Short: "Stylelinks CLI",
	Long: `Stylelinks serves content whose image fields carry links to styled derivatives.
Core concepts:
- Image style: a named derivative recipe (thumbnail, large). Disabled styles never produce links.
- Consumer: an API client. Each consumer is granted a set of image styles and picks itself with the X-Consumer-ID header or the consumerId query parameter.
- Field enhancer: per-field settings. A refined field only exposes its custom selection of the consumer's styles.
- Derivative link: href plus rel types added under meta.links of an image field.
- Event log: every change, view with 'sl log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("STYLELINKS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().Bool("force", false, "force operation")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("force", rootCmd.PersistentFlags().Lookup("force"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(styleCmd())
	rootCmd.AddCommand(consumerCmd())
	rootCmd.AddCommand(fileCmd())
	rootCmd.AddCommand(articleCmd())
	rootCmd.AddCommand(fieldCmd())
	rootCmd.AddCommand(derivativeCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(rbacCmd())
	rootCmd.AddCommand(apiKeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage workspace config",
		Long:  "stylelinks.yml declares styles, consumers, field settings, roles and webhooks. It seeds an empty workspace and can be re-applied with 'sl config apply'.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configApplyCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default stylelinks.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !viper.GetBool("force") {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate stylelinks.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func configApplyCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Upsert styles, consumers, fields and roles from a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg *config.Config
			var err error
			if file != "" {
				cfg, err = config.FromFile(file)
			} else {
				cfg, err = config.Load(viper.GetString("workspace"))
			}
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.ApplyConfig(ctx, cfg, actorID()); err != nil {
					return err
				}
				fmt.Printf("applied %d styles, %d consumers, %d fields\n", len(cfg.Styles), len(cfg.Consumers), len(cfg.Fields))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "config file (defaults to the workspace stylelinks.yml)")
	return cmd
}

func styleCmd() *cobra.Command {
	st := &cobra.Command{Use: "style", Short: "Manage image styles"}
	st.AddCommand(styleListCmd())
	st.AddCommand(styleSaveCmd())
	st.AddCommand(styleDeleteCmd())
	return st
}

func styleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List image styles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				styles, err := e.ListStyles(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(styles)
				}
				tw := newTable("ID", "Label", "Status", "Relations")
				for _, s := range styles {
					tw.AppendRow(table.Row{s.ID, s.Label, s.Status, strings.Join(s.Relations, "\n")})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func styleSaveCmd() *cobra.Command {
	var opts engine.StyleSaveOptions
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create or replace an image style",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts.ActorID = actorID()
				if err := e.RBAC.Require(ctx, opts.ActorID, access.PermStylesManage); err != nil {
					return err
				}
				s, err := e.SaveStyle(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "machine name")
	cmd.Flags().StringVar(&opts.Label, "label", "", "label")
	cmd.Flags().BoolVar(&opts.Disabled, "disabled", false, "disable the style")
	cmd.Flags().StringSliceVar(&opts.Relations, "rel", nil, "extra relation type (repeatable)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func styleDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an image style",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.RBAC.Require(ctx, actorID(), access.PermStylesManage); err != nil {
					return err
				}
				return e.DeleteStyle(ctx, args[0], actorID())
			})
		},
	}
}

func consumerCmd() *cobra.Command {
	c := &cobra.Command{Use: "consumer", Short: "Manage consumers and their image styles"}
	c.AddCommand(consumerListCmd())
	c.AddCommand(consumerSaveCmd())
	c.AddCommand(consumerStylesCmd())
	return c
}

func consumerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List consumers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListConsumers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Label", "Default", "Image styles")
				for _, c := range items {
					def := ""
					if c.IsDefault {
						def = "yes"
					}
					tw.AppendRow(table.Row{c.ID, c.Label, def, strings.Join(c.ImageStyles, ", ")})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func consumerSaveCmd() *cobra.Command {
	var opts engine.ConsumerSaveOptions
	var styles []string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create or update a consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts.ActorID = actorID()
				if err := e.RBAC.Require(ctx, opts.ActorID, access.PermConsumersManage); err != nil {
					return err
				}
				if cmd.Flags().Changed("style") {
					opts.ImageStyles = nonNil(styles)
				}
				c, err := e.SaveConsumer(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "consumer id")
	cmd.Flags().StringVar(&opts.Label, "label", "", "label")
	cmd.Flags().BoolVar(&opts.Default, "default", false, "make this the default consumer")
	cmd.Flags().StringSliceVar(&styles, "style", nil, "granted image style (repeatable)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func consumerStylesCmd() *cobra.Command {
	var styles []string
	cmd := &cobra.Command{
		Use:   "set-styles <consumer>",
		Short: "Replace the image styles granted to a consumer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.RBAC.Require(ctx, actorID(), access.PermConsumersManage); err != nil {
					return err
				}
				c, err := e.SetConsumerImageStyles(ctx, args[0], nonNil(styles), actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringSliceVar(&styles, "style", nil, "granted image style (repeatable)")
	return cmd
}

func fileCmd() *cobra.Command {
	f := &cobra.Command{Use: "file", Short: "Manage file entities"}
	f.AddCommand(fileAddCmd())
	f.AddCommand(fileListCmd())
	f.AddCommand(fileDeleteCmd())
	return f
}

func fileAddCmd() *cobra.Command {
	var opts engine.FileCreateOptions
	var width, height int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a file by stream URI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts.ActorID = actorID()
				if err := e.RBAC.Require(ctx, opts.ActorID, access.PermFilesCreate); err != nil {
					return err
				}
				if cmd.Flags().Changed("width") {
					opts.Width = &width
				}
				if cmd.Flags().Changed("height") {
					opts.Height = &height
				}
				f, err := e.CreateFile(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(f)
			})
		},
	}
	cmd.Flags().StringVar(&opts.URI, "uri", "", "stream URI, e.g. public://2024/cat.jpg")
	cmd.Flags().StringVar(&opts.Filename, "filename", "", "file name")
	cmd.Flags().StringVar(&opts.MIME, "mime", "", "MIME type")
	cmd.Flags().Int64Var(&opts.Size, "size", 0, "size in bytes")
	cmd.Flags().IntVar(&width, "width", 0, "image width")
	cmd.Flags().IntVar(&height, "height", 0, "image height")
	cmd.Flags().StringVar(&opts.Status, "status", "permanent", "permanent or temporary")
	_ = cmd.MarkFlagRequired("uri")
	return cmd
}

func fileListCmd() *cobra.Command {
	var owner string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				files, err := e.ListFiles(ctx, owner, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(files)
				}
				tw := newTable("ID", "URI", "MIME", "Owner", "Status")
				for _, f := range files {
					tw.AppendRow(table.Row{f.ID, f.URI, f.MIME, f.OwnerID, f.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner actor id")
	cmd.Flags().IntVar(&limit, "limit", 50, "max files")
	return cmd
}

func fileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <uuid>",
		Short: "Delete a file; referencing fields lose their derivative links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				force := false
				if viper.GetBool("force") {
					if err := e.RBAC.Require(ctx, actorID(), access.PermFilesDelete); err != nil {
						return err
					}
					force = true
				}
				return e.DeleteFile(ctx, args[0], actorID(), force)
			})
		},
	}
}

func articleCmd() *cobra.Command {
	a := &cobra.Command{Use: "article", Short: "Manage articles"}
	a.AddCommand(articleCreateCmd())
	a.AddCommand(articleShowCmd())
	a.AddCommand(articleListCmd())
	return a
}

func articleCreateCmd() *cobra.Command {
	var opts engine.ArticleCreateOptions
	var alt, title string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an article",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts.ActorID = actorID()
				if err := e.RBAC.Require(ctx, opts.ActorID, access.PermArticlesCreate); err != nil {
					return err
				}
				opts.ImageAlt = optionalString(alt)
				opts.ImageTitle = optionalString(title)
				a, err := e.CreateArticle(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Body, "body", "", "body")
	cmd.Flags().StringVar(&opts.ImageID, "image", "", "image file uuid")
	cmd.Flags().StringVar(&alt, "alt", "", "image alt text")
	cmd.Flags().StringVar(&title, "image-title", "", "image title")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func readOptions(consumerID string) engine.ReadOptions {
	return engine.ReadOptions{Caller: enhancer.Caller{ID: actorID()}, Consumer: consumerID}
}

func articleShowCmd() *cobra.Command {
	var consumerID string
	cmd := &cobra.Command{
		Use:   "show <uuid>",
		Short: "Show an article as a consumer sees it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				view, err := e.GetArticle(ctx, args[0], readOptions(consumerID))
				if err != nil {
					return err
				}
				return printJSON(view)
			})
		},
	}
	cmd.Flags().StringVar(&consumerID, "consumer", "", "consumer id (defaults to the default consumer)")
	return cmd
}

func articleListCmd() *cobra.Command {
	var consumerID string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List articles with their derivative links",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				views, err := e.ListArticles(ctx, limit, readOptions(consumerID))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(views)
				}
				tw := newTable("ID", "Title", "Image", "Styles")
				for _, v := range views {
					tw.AppendRow(table.Row{v.ID, v.Title, v.Image.ID(), strings.Join(linkedStyles(v.Image), ", ")})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&consumerID, "consumer", "", "consumer id (defaults to the default consumer)")
	cmd.Flags().IntVar(&limit, "limit", 50, "max articles")
	return cmd
}

func fieldCmd() *cobra.Command {
	f := &cobra.Command{Use: "field", Short: "Configure field enhancers"}
	f.AddCommand(fieldListCmd())
	f.AddCommand(fieldSetCmd())
	return f
}

func fieldListCmd() *cobra.Command {
	var resource string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List field enhancers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListFieldEnhancers(ctx, resource)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("Resource", "Field", "Enhancer", "Refine", "Selection")
				for _, f := range items {
					tw.AppendRow(table.Row{f.Resource, f.Field, f.Enhancer, f.Settings.Styles.Refine, strings.Join(f.Settings.Styles.CustomSelection, ", ")})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&resource, "resource", engine.ArticleResource, "resource type")
	return cmd
}

func fieldSetCmd() *cobra.Command {
	var resource, field string
	var refine bool
	var selection []string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the image style settings of a field",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.RBAC.Require(ctx, actorID(), access.PermFieldsManage); err != nil {
					return err
				}
				settings := enhancer.Settings{Styles: enhancer.StyleSettings{Refine: refine, CustomSelection: enhancer.Selection(nonNil(selection))}}
				view, err := e.SetFieldEnhancer(ctx, resource, field, enhancer.ID, settings, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(view)
			})
		},
	}
	cmd.Flags().StringVar(&resource, "resource", engine.ArticleResource, "resource type")
	cmd.Flags().StringVar(&field, "field", engine.ImageField, "field name")
	cmd.Flags().BoolVar(&refine, "refine", false, "only expose the custom selection")
	cmd.Flags().StringSliceVar(&selection, "select", nil, "selected image style (repeatable)")
	return cmd
}

func derivativeCmd() *cobra.Command {
	d := &cobra.Command{Use: "derivative", Short: "Derivative URLs"}
	var uri, style, token string
	urlCmd := &cobra.Command{
		Use:   "url",
		Short: "Print the derivative URL of a file URI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				fmt.Println(e.Catalog.BuildURL(uri, style))
				return nil
			})
		},
	}
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check an itok token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ok := e.Catalog.ValidToken(uri, style, token)
				if viper.GetBool("json") {
					return printJSON(map[string]any{"valid": ok})
				}
				if !ok {
					return errors.New("token does not match")
				}
				fmt.Println("token OK")
				return nil
			})
		},
	}
	for _, c := range []*cobra.Command{urlCmd, verifyCmd} {
		c.Flags().StringVar(&uri, "uri", "", "file stream URI")
		c.Flags().StringVar(&style, "style", "", "image style id")
		_ = c.MarkFlagRequired("uri")
		_ = c.MarkFlagRequired("style")
	}
	verifyCmd.Flags().StringVar(&token, "itok", "", "token to check")
	d.AddCommand(urlCmd, verifyCmd)
	return d
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "Every style, consumer, field, file and article change, oldest last.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				evts, err := e.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(evts)
				}
				tw := newTable("ID", "TS", "Type", "Entity", "Actor")
				for _, evt := range evts {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.EntityKind + ":" + evt.EntityID, evt.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func rbacCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rbac",
		Short: "RBAC management",
	}
	cmd.AddCommand(rbacWhoamiCmd())
	cmd.AddCommand(rbacGrantCmd())
	cmd.AddCommand(rbacRevokeCmd())
	cmd.AddCommand(rbacBootstrapCmd())
	return cmd
}

func rbacWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show current actor roles and permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				who, err := e.WhoAmI(ctx, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(who)
			})
		},
	}
}

func roleFlags(cmd *cobra.Command, target, role *string) {
	cmd.Flags().StringVar(target, "actor", "", "actor id")
	cmd.Flags().StringVar(role, "role", "", "role id")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("role")
}

func rbacGrantCmd() *cobra.Command {
	var target, role string
	cmd := &cobra.Command{
		Use:   "grant-role",
		Short: "Grant role to actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.GrantRole(ctx, actorID(), target, role)
			})
		},
	}
	roleFlags(cmd, &target, &role)
	return cmd
}

func rbacRevokeCmd() *cobra.Command {
	var target, role string
	cmd := &cobra.Command{
		Use:   "revoke-role",
		Short: "Revoke role from actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.RevokeRole(ctx, actorID(), target, role)
			})
		},
	}
	roleFlags(cmd, &target, &role)
	return cmd
}

func rbacBootstrapCmd() *cobra.Command {
	var target, role string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap an actor role without RBAC checks (dev only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.BootstrapRole(ctx, target, role)
			})
		},
	}
	roleFlags(cmd, &target, &role)
	return cmd
}

func apiKeyCmd() *cobra.Command {
	k := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for the current actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				key, plain, err := e.CreateAPIKey(ctx, actorID(), name)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"id": key.ID, "name": key.Name, "key": plain})
				}
				fmt.Printf("API key %s created. Store it now, it is not shown again:\n%s\n", key.ID, plain)
				return nil
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "key name")
	k.AddCommand(create)
	return k
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var anonymous bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.FromEnv(os.Stderr)
			if err != nil {
				logger.Warn("ignoring log level", "error", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			e, conn, err := app.Open(ctx, viper.GetString("workspace"), actorID(), logger.Logger)
			if err != nil {
				return err
			}
			defer conn.Close()
			authCfg := server.AuthConfig{
				JWTSecret:          viper.GetString("jwt-secret"),
				AllowAnonymousRead: anonymous || viper.GetBool("anonymous-read"),
			}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("STYLELINKS_JWT_SECRET is required for bearer auth")
			}
			if basePath == "" {
				basePath = e.Config.Server.BasePath
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg, Logger: logger.Logger})
			if err != nil {
				return err
			}
			server.StartWebhooks(ctx, e, logger.Logger)
			srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			logger.InfoContext(ctx, "serving stylelinks API", "addr", addr, "base_path", basePath, "docs", "/docs")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to config server.base_path)")
	cmd.Flags().BoolVar(&anonymous, "anonymous-read", false, "allow unauthenticated GET requests")
	return cmd
}

// --- helpers ---

func actorID() string {
	return viper.GetString("actor-id")
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	logger, err := logging.FromEnv(os.Stderr)
	if err != nil {
		logger.Warn("ignoring log level", "error", err)
	}
	e, conn, err := app.Open(ctx, viper.GetString("workspace"), actorID(), logger.Logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, e)
}

func newTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row(header))
	return tw
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func linkedStyles(v enhancer.FieldValue) []string {
	meta, _ := v["meta"].(map[string]any)
	links, _ := meta["links"].(map[string]any)
	out := make([]string, 0, len(links))
	for id := range links {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
