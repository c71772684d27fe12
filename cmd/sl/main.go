package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"siteledger/internal/attach"
	"siteledger/internal/blob"
	"siteledger/internal/blog"
	"siteledger/internal/config"
	"siteledger/internal/currency"
	"siteledger/internal/db"
	"siteledger/internal/domain"
	"siteledger/internal/migrate"
	"siteledger/internal/receipt"
	"siteledger/internal/server"
	"siteledger/internal/store"
	"siteledger/internal/workspace"
)

var rootCmd = &cobra.Command{
	Use:   "sl",
	Short: "Siteledger CLI",
	Long: `Siteledger tracks construction project spend for an investor portal.
Core concepts:
- Workspace: the .siteledger directory holding snapshots and the blob database.
- Projects: each build (villa, guesthouse) owns tasks, labor, and materials.
- Records: tasks, labor entries, and material orders, each with paid state.
- Attachments: receipt photos stored as blobs or linked from Drive.
- Blog: site updates published to the marketing page.
Mutations require the admin role; investors read everything.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ws := viper.GetString("workspace")
		if _, err := store.EnsureWorkspace(ws); err != nil {
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
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SITELEDGER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("role", "admin", "portal role (admin, investor)")
	rootCmd.PersistentFlags().StringP("project", "p", "", "project id")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("role", rootCmd.PersistentFlags().Lookup("role"))
	_ = viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
}

func registerCommands() {
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(laborCmd())
	rootCmd.AddCommand(materialCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(totalsCmd())
	rootCmd.AddCommand(blogCmd())
	rootCmd.AddCommand(blobCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(serveCmd())
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List project ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				seen := map[string]bool{}
				var ids []string
				for _, id := range cfg.Venture.Projects {
					if !seen[id] {
						seen[id] = true
						ids = append(ids, id)
					}
				}
				for _, id := range e.Store.ProjectIDs() {
					if !seen[id] {
						seen[id] = true
						ids = append(ids, id)
					}
				}
				return printJSONOrTable(ids)
			})
		},
	})
	prj.AddCommand(&cobra.Command{
		Use:   "data",
		Short: "Dump full project data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				return printJSON(e.Store.GetProjectData(activeProject(cfg)))
			})
		},
	})
	return prj
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage tasks"}
	task.AddCommand(taskListCmd())
	task.AddCommand(taskAddCmd())
	task.AddCommand(deleteCmd("task", domain.KindTask))
	task.AddCommand(paidCmd("task", domain.KindTask))
	return task
}

func taskListCmd() *cobra.Command {
	var sortField, dir string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				tasks := e.Store.GetProjectData(activeProject(cfg)).Tasks
				field, d := sortArgs(domain.KindTask, sortField, dir)
				workspace.SortTasks(tasks, field, d)
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				fmtr := formatter(cfg)
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Category", "Owner", "Due", "Cost", "Paid"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Name, t.Status, t.Category, t.Owner, t.DueDate, fmtr.Format(t.Cost, fmtr.Base), t.Paid})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sortField, "sort", "", "sort field")
	cmd.Flags().StringVar(&dir, "dir", "", "sort direction (asc, desc)")
	return cmd
}

func taskAddCmd() *cobra.Command {
	var t domain.Task
	var tags []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				t.Tags = tags
				saved, err := e.SaveTask(viper.GetString("role"), activeProject(cfg), t)
				if err != nil {
					return err
				}
				return printJSONOrTable(saved)
			})
		},
	}
	cmd.Flags().StringVar(&t.ID, "id", "", "task id (empty appends)")
	cmd.Flags().StringVar(&t.Name, "name", "", "task name")
	cmd.Flags().StringVar(&t.Status, "status", "", "status")
	cmd.Flags().StringVar(&t.Category, "category", "", "category")
	cmd.Flags().StringVar(&t.Owner, "owner", "", "owner")
	cmd.Flags().StringVar(&t.StartDate, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&t.DueDate, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&t.EstHours, "est-hours", 0, "estimated hours")
	cmd.Flags().Float64Var(&t.Cost, "cost", 0, "cost in base currency")
	cmd.Flags().IntVar(&t.SortOrder, "order", 0, "sort order")
	cmd.Flags().StringVar(&t.Notes, "notes", "", "notes")
	cmd.Flags().StringArrayVar(&tags, "tag", []string{}, "tag (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func laborCmd() *cobra.Command {
	labor := &cobra.Command{Use: "labor", Short: "Manage labor entries"}
	labor.AddCommand(laborListCmd())
	labor.AddCommand(laborAddCmd())
	labor.AddCommand(deleteCmd("labor", domain.KindLabor))
	labor.AddCommand(paidCmd("labor", domain.KindLabor))
	return labor
}

func laborListCmd() *cobra.Command {
	var sortField, dir string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List labor entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				labor := e.Store.GetProjectData(activeProject(cfg)).Labor
				field, d := sortArgs(domain.KindLabor, sortField, dir)
				workspace.SortLabor(labor, field, d)
				if viper.GetBool("json") {
					return printJSON(labor)
				}
				fmtr := formatter(cfg)
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Role", "Rate Type", "Qty", "Rate", "Cost", "Start", "Paid"})
				for _, l := range labor {
					tw.AppendRow(table.Row{l.ID, l.Role, l.RateType, l.Qty, l.Rate, fmtr.Format(l.Cost, fmtr.Base), l.StartDate, l.Paid})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sortField, "sort", "", "sort field")
	cmd.Flags().StringVar(&dir, "dir", "", "sort direction (asc, desc)")
	return cmd
}

func laborAddCmd() *cobra.Command {
	var l domain.Labor
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a labor entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				if !cmd.Flags().Changed("qty") && !cmd.Flags().Changed("rate") && l.ID == "" {
					def := workspace.NewLabor(activeProject(cfg))
					l.Qty, l.Rate = def.Qty, def.Rate
				}
				saved, err := e.SaveLabor(viper.GetString("role"), activeProject(cfg), l)
				if err != nil {
					return err
				}
				return printJSONOrTable(saved)
			})
		},
	}
	cmd.Flags().StringVar(&l.ID, "id", "", "labor id (empty appends)")
	cmd.Flags().StringVar(&l.Role, "name", "", "crew role")
	cmd.Flags().StringVar(&l.Workers, "workers", "", "worker names")
	cmd.Flags().StringVar(&l.RateType, "rate-type", "", "rate type (Hourly, Daily)")
	cmd.Flags().Float64Var(&l.Qty, "qty", 0, "quantity of rate units")
	cmd.Flags().Float64Var(&l.Rate, "rate", 0, "rate per unit")
	cmd.Flags().StringVar(&l.Source, "source", "", "labor source")
	cmd.Flags().StringVar(&l.StartDate, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&l.EndDate, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&l.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func materialCmd() *cobra.Command {
	mat := &cobra.Command{Use: "material", Short: "Manage material entries"}
	mat.AddCommand(materialListCmd())
	mat.AddCommand(materialAddCmd())
	mat.AddCommand(deleteCmd("material", domain.KindMaterial))
	mat.AddCommand(paidCmd("material", domain.KindMaterial))
	mat.AddCommand(materialReceivedCmd())
	return mat
}

func materialListCmd() *cobra.Command {
	var sortField, dir string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List material entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				materials := e.Store.GetProjectData(activeProject(cfg)).Materials
				field, d := sortArgs(domain.KindMaterial, sortField, dir)
				workspace.SortMaterials(materials, field, d)
				if viper.GetBool("json") {
					return printJSON(materials)
				}
				fmtr := formatter(cfg)
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Item", "Category", "Qty", "Unit Cost", "Total", "ETA", "Received", "Paid"})
				for _, m := range materials {
					tw.AppendRow(table.Row{m.ID, m.Item, m.Category, m.Qty, fmtr.Format(m.UnitCost, fmtr.Base), fmtr.Format(m.TotalCost, fmtr.Base), m.DeliveryETA, m.Received, m.Paid})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sortField, "sort", "", "sort field")
	cmd.Flags().StringVar(&dir, "dir", "", "sort direction (asc, desc)")
	return cmd
}

func materialAddCmd() *cobra.Command {
	var m domain.Material
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a material entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				if !cmd.Flags().Changed("qty") && m.ID == "" {
					m.Qty = workspace.NewMaterial(activeProject(cfg)).Qty
				}
				saved, err := e.SaveMaterial(viper.GetString("role"), activeProject(cfg), m)
				if err != nil {
					return err
				}
				return printJSONOrTable(saved)
			})
		},
	}
	cmd.Flags().StringVar(&m.ID, "id", "", "material id (empty appends)")
	cmd.Flags().StringVar(&m.Item, "name", "", "item name")
	cmd.Flags().StringVar(&m.Category, "category", "", "category")
	cmd.Flags().StringVar(&m.Unit, "unit", "", "unit of measure")
	cmd.Flags().Float64Var(&m.Qty, "qty", 0, "quantity")
	cmd.Flags().Float64Var(&m.UnitCost, "unit-cost", 0, "cost per unit")
	cmd.Flags().StringVar(&m.Supplier, "supplier", "", "supplier")
	cmd.Flags().IntVar(&m.LeadDays, "lead-days", 0, "lead days")
	cmd.Flags().StringVar(&m.DeliveryETA, "eta", "", "delivery ETA (YYYY-MM-DD)")
	cmd.Flags().StringVar(&m.Location, "location", "", "storage location")
	cmd.Flags().StringVar(&m.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func materialReceivedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "received <id>",
		Short: "Toggle the received flag on a material",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				received, err := e.ToggleReceived(viper.GetString("role"), activeProject(cfg), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("received: %v\n", received)
				return nil
			})
		},
	}
	return cmd
}

func deleteCmd(noun, kind string) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Delete a %s (first call arms, repeat or --yes confirms)", noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				role := viper.GetString("role")
				project := activeProject(cfg)
				outcome, err := e.RequestDelete(ctx, role, project, kind, args[0])
				if err != nil {
					return err
				}
				if outcome.Armed != "" && yes {
					outcome, err = e.RequestDelete(ctx, role, project, kind, args[0])
					if err != nil {
						return err
					}
				}
				if outcome.Deleted {
					fmt.Println("deleted")
					return nil
				}
				fmt.Printf("armed %s; run again or pass --yes to confirm\n", outcome.Armed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm immediately")
	return cmd
}

func paidCmd(noun, kind string) *cobra.Command {
	return &cobra.Command{
		Use:   "paid <id>",
		Short: fmt.Sprintf("Toggle the paid flag on a %s", noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				paid, err := e.TogglePaid(viper.GetString("role"), activeProject(cfg), kind, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("paid: %v\n", paid)
				return nil
			})
		},
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <kind>",
		Short: "Export records as CSV (tasks, labor, materials)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				text, err := e.ExportCSV(activeProject(cfg), args[0])
				if err != nil {
					return err
				}
				fmt.Print(text)
				return nil
			})
		},
	}
	return cmd
}

func importCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import <kind>",
		Short: "Import CSV rows as new records (tasks, labor, materials)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				n, err := e.ImportCSV(viper.GetString("role"), activeProject(cfg), args[0], string(data))
				if err != nil {
					return err
				}
				fmt.Printf("imported %d rows\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to CSV file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func totalsCmd() *cobra.Command {
	var ref string
	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Weekly paid/unpaid totals (all projects, or --project for one)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				refDate := time.Now().UTC()
				if ref != "" {
					parsed, err := time.Parse("2006-01-02", ref)
					if err != nil {
						return fmt.Errorf("invalid ref date %s", ref)
					}
					refDate = parsed
				}
				var totals store.WeeklyTotals
				if project := viper.GetString("project"); project != "" {
					totals = store.ComputeWeeklyTotals(e.Store.GetProjectData(project), refDate)
				} else {
					totals = store.ComputeAllProjectsWeeklyTotals(e.Store.AllProjects(), refDate)
				}
				if viper.GetBool("json") {
					return printJSON(totals)
				}
				fmtr := formatter(cfg)
				fmt.Printf("Paid:   %s\n", fmtr.Format(totals.Paid, fmtr.Base))
				fmt.Printf("Unpaid: %s\n", fmtr.Format(totals.Unpaid, fmtr.Base))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&ref, "ref", "", "reference date (YYYY-MM-DD, default today)")
	return cmd
}

func blogCmd() *cobra.Command {
	bc := &cobra.Command{Use: "blog", Short: "Manage blog posts"}
	var publishedOnly bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List blog posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				m := blog.New(e.Store)
				posts := m.List(publishedOnly)
				if viper.GetBool("json") {
					return printJSON(posts)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Author", "Date", "Status"})
				for _, p := range posts {
					tw.AppendRow(table.Row{p.ID, p.Title, p.Author, p.Date, p.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().BoolVar(&publishedOnly, "published", false, "published posts only")
	bc.AddCommand(list)

	var post domain.BlogPost
	var tags []string
	save := &cobra.Command{
		Use:   "save",
		Short: "Create or update a blog post",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				post.Tags = tags
				saved, err := blog.New(e.Store).Save(viper.GetString("role"), post)
				if err != nil {
					return err
				}
				return printJSONOrTable(saved)
			})
		},
	}
	save.Flags().StringVar(&post.ID, "id", "", "post id (empty appends)")
	save.Flags().StringVar(&post.Title, "title", "", "title")
	save.Flags().StringVar(&post.Author, "author", "", "author")
	save.Flags().StringVar(&post.Date, "date", "", "date (YYYY-MM-DD)")
	save.Flags().StringVar(&post.Status, "status", "", "status (Published, Draft)")
	save.Flags().StringVar(&post.Excerpt, "excerpt", "", "excerpt")
	save.Flags().StringVar(&post.Body, "body", "", "body text")
	save.Flags().StringArrayVar(&tags, "tag", []string{}, "tag (repeatable)")
	_ = save.MarkFlagRequired("title")
	bc.AddCommand(save)

	bc.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a blog post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				return blog.New(e.Store).Delete(viper.GetString("role"), args[0])
			})
		},
	})
	return bc
}

func blobCmd() *cobra.Command {
	bc := &cobra.Command{Use: "blob", Short: "Manage attachment blobs"}
	var file, name string
	put := &cobra.Command{
		Use:   "put <key>",
		Short: "Store a base64 payload from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				return e.Blobs.Save(ctx, args[0], strings.TrimSpace(string(data)), name)
			})
		},
	}
	put.Flags().StringVar(&file, "file", "", "path to base64 payload")
	put.Flags().StringVar(&name, "name", "", "display name")
	_ = put.MarkFlagRequired("file")
	bc.AddCommand(put)

	bc.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a stored payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				payload, err := e.Blobs.Get(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Println(payload)
				return nil
			})
		},
	})

	bc.AddCommand(&cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a stored payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *workspace.Engine, cfg *config.Config) error {
				return e.Blobs.Delete(ctx, args[0])
			})
		},
	})
	return bc
}

func tokenCmd() *cobra.Command {
	var actor string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a portal JWT for the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			secret := cfg.Server.JWTSecret
			if env := os.Getenv("SITELEDGER_JWT_SECRET"); env != "" {
				secret = env
			}
			token, err := server.MintToken(secret, actor, viper.GetString("role"), ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "local-user", "actor name")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowRoleHeader, allowBootstrap bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the portal HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := viper.GetString("workspace")
			cfg, err := config.Load(ws)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") || cfg.Server.Addr == "" {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("base-path") || cfg.Server.BasePath == "" {
				cfg.Server.BasePath = basePath
			}
			logger := newLogger(cfg.Log.Level)

			st, err := store.Open(ws, logger)
			if err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: ws})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			blobs := blob.Store{DB: conn}
			eng := workspace.New(st, blobs, logger)
			svc := receipt.New(cfg.Inference.BaseURL, cfg.Inference.APIKey, cfg.Inference.Model, eng, blobs, logger)

			secret := cfg.Server.JWTSecret
			if env := os.Getenv("SITELEDGER_JWT_SECRET"); env != "" {
				secret = env
			}
			handler, err := server.New(server.Config{
				Engine:   eng,
				Blog:     blog.New(st),
				Receipts: svc,
				Resolver: attach.Resolver{Blobs: blobs, Log: logger},
				Blobs:    blobs,
				Store:    st,
				Currency: formatter(cfg),
				Projects: cfg.Venture.Projects,
				BasePath: cfg.Server.BasePath,
				Auth: server.AuthConfig{
					JWTSecret:           secret,
					AllowRoleHeader:     allowRoleHeader,
					AllowBootstrapLogin: allowBootstrap || cfg.Server.AllowBootstrapLogin,
					Logger:              logger,
				},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			logger.Info("serving portal api", "addr", cfg.Server.Addr, "base_path", cfg.Server.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8787", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&allowRoleHeader, "allow-role-header", false, "trust X-Portal-Role (development only)")
	cmd.Flags().BoolVar(&allowBootstrap, "allow-bootstrap-login", false, "expose POST /auth/token (development only)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, *workspace.Engine, *config.Config) error) error {
	ws := viper.GetString("workspace")
	cfg, err := config.Load(ws)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log.Level)
	st, err := store.Open(ws, logger)
	if err != nil {
		return err
	}
	conn, err := db.Open(db.Config{Workspace: ws})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	eng := workspace.New(st, blob.Store{DB: conn}, logger)
	return fn(ctx, eng, cfg)
}

func activeProject(cfg *config.Config) string {
	if project := viper.GetString("project"); project != "" {
		return project
	}
	if len(cfg.Venture.Projects) > 0 {
		return cfg.Venture.Projects[0]
	}
	return "default"
}

func sortArgs(kind, field, dir string) (string, string) {
	defField, defDir := workspace.DefaultSort(kind)
	if field == "" {
		return defField, defDir
	}
	if dir == "" {
		dir = workspace.Asc
	}
	return field, dir
}

func formatter(cfg *config.Config) currency.Formatter {
	return currency.Formatter{Base: cfg.Currency.Base, Rates: cfg.Currency.Rates}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
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
