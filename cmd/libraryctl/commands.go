package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"libraryos/internal/activity"
	"libraryos/internal/catalog"
	"libraryos/internal/config"
	"libraryos/internal/library"
	"libraryos/internal/logging"
	"libraryos/internal/membership"
	"libraryos/internal/storage"
)

// app carries what every command needs. Tests fill svc directly and skip
// opening the configured store.
type app struct {
	cfgPath string
	actor   string
	out     io.Writer
	log     *logrus.Logger
	store   storage.Store
	svc     library.Service
	now     func() time.Time
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "libraryctl",
		Short:         "Administer the library store directly",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.store == nil {
				return nil
			}
			return a.store.Close()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.actor, "as", "admin-1", "user id recorded in the activity log")

	root.AddCommand(
		newStatsCmd(a),
		newBooksCmd(a),
		newAddBookCmd(a),
		newBorrowCmd(a),
		newReturnCmd(a),
		newLoansCmd(a),
		newLogsCmd(a),
		newRegisterCmd(a),
	)
	return root
}

func (a *app) open(ctx context.Context) error {
	if a.now == nil {
		a.now = time.Now
	}
	if a.svc != nil {
		return nil
	}

	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.log == nil {
		a.log = logging.New(cfg.Log.Level, cfg.Log.Format)
	}

	store, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	svc := library.NewService(store, library.WithLogger(a.log))
	if err := svc.Load(ctx); err != nil {
		store.Close()
		return err
	}
	a.store, a.svc = store, svc
	return nil
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard counters",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			st := a.svc.Stats()
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Total books\t%d\n", st.TotalBooks)
			fmt.Fprintf(w, "Available copies\t%d\n", st.AvailableBooks)
			fmt.Fprintf(w, "Out of stock\t%d\n", st.OutOfStock)
			fmt.Fprintf(w, "Active borrows\t%d\n", st.ActiveBorrows)
			fmt.Fprintf(w, "Overdue\t%d\n", st.OverdueBooks)
			fmt.Fprintf(w, "Members\t%d\n", st.TotalMembers)
			return w.Flush()
		},
	}
}

func newBooksCmd(a *app) *cobra.Command {
	var (
		category  string
		bookType  string
		available string
	)
	cmd := &cobra.Command{
		Use:   "books [query]",
		Short: "List or search the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			criteria := catalog.Criteria{Category: category, Type: catalog.Type(bookType)}
			switch available {
			case "":
			case "yes", "true":
				v := true
				criteria.Available = &v
			case "no", "false":
				v := false
				criteria.Available = &v
			default:
				return fmt.Errorf("--available must be yes or no, got %q", available)
			}

			var books []catalog.Book
			if len(args) == 1 {
				books = catalog.Filter(a.svc.SearchBooks(args[0]), criteria)
			} else {
				books = a.svc.FilterBooks(criteria)
			}
			if len(books) == 0 {
				fmt.Fprintln(a.out, "No books found.")
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tTYPE\tCATEGORY\tAVAILABLE")
			for _, b := range books {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d/%d\n", b.ID, b.Title, b.Author, b.Type, b.Category, b.AvailableStock, b.Stock)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "exact category")
	cmd.Flags().StringVar(&bookType, "type", "", "physical or ebook")
	cmd.Flags().StringVar(&available, "available", "", "yes or no")
	return cmd
}

func newAddBookCmd(a *app) *cobra.Command {
	var d catalog.Draft
	var bookType string
	cmd := &cobra.Command{
		Use:   "add-book",
		Short: "Add a book to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d.Type = catalog.Type(bookType)
			switch d.Type {
			case catalog.TypePhysical:
				if !cmd.Flags().Changed("available") {
					d.AvailableStock = d.Stock
				}
			case catalog.TypeEbook:
				d.Stock, d.AvailableStock = catalog.EbookStock, catalog.EbookStock
			default:
				return fmt.Errorf("--type must be physical or ebook, got %q", bookType)
			}

			book, err := a.svc.AddBook(cmd.Context(), a.actor, d)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added book %s (%s)\n", book.ID, book.QRCode)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&d.Title, "title", "", "title")
	f.StringVar(&d.Author, "author", "", "author")
	f.StringVar(&d.ISBN, "isbn", "", "ISBN")
	f.IntVar(&d.PublishYear, "year", 0, "publication year")
	f.StringVar(&bookType, "type", string(catalog.TypePhysical), "physical or ebook")
	f.StringVar(&d.Category, "category", "", "category")
	f.StringVar(&d.Location, "location", "", "shelf location")
	f.StringVar(&d.FileURL, "file-url", "", "ebook download location")
	f.IntVar(&d.Stock, "stock", 1, "copies owned")
	f.IntVar(&d.AvailableStock, "available", 0, "copies on the shelf (defaults to --stock)")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newBorrowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <user-id> <book-id>",
		Short: "Lend a book to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, bookID := args[0], args[1]
			ok, err := a.svc.BorrowBook(cmd.Context(), userID, bookID)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New(a.svc.DiagnoseBorrow(userID, bookID).Message())
			}
			txs := a.svc.UserTransactions(userID)
			tx := txs[len(txs)-1]
			fmt.Fprintf(a.out, "Loan %s: %q due %s\n", tx.ID, a.svc.BookTitle(bookID), tx.DueDate.Format("2006-01-02"))
			return nil
		},
	}
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <transaction-id>",
		Short: "Close a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := a.svc.Transaction(args[0]); !ok {
				return fmt.Errorf("transaction %s not found", args[0])
			}
			if err := a.svc.ReturnBook(cmd.Context(), args[0]); err != nil {
				return err
			}
			tx, _ := a.svc.Transaction(args[0])
			if tx.Penalty != nil {
				fmt.Fprintf(a.out, "Returned %q late, penalty %d\n", a.svc.BookTitle(tx.BookID), *tx.Penalty)
				return nil
			}
			fmt.Fprintf(a.out, "Returned %q\n", a.svc.BookTitle(tx.BookID))
			return nil
		},
	}
}

func newLoansCmd(a *app) *cobra.Command {
	var (
		userID  string
		overdue bool
	)
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List loans",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			txs := a.svc.Transactions()
			switch {
			case overdue:
				txs = a.svc.OverdueTransactions()
			case userID != "":
				txs = a.svc.UserTransactions(userID)
			}
			if len(txs) == 0 {
				fmt.Fprintln(a.out, "No loans.")
				return nil
			}

			now := a.now()
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSER\tBOOK\tSTATUS\tDUE\tDAYS LEFT")
			for _, tx := range txs {
				if overdue && userID != "" && tx.UserID != userID {
					continue
				}
				left := "-"
				if tx.Active() {
					left = fmt.Sprint(tx.DaysUntilDue(now))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					tx.ID, a.svc.UserName(tx.UserID), a.svc.BookTitle(tx.BookID),
					tx.Status, tx.DueDate.Format("2006-01-02"), left)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "only loans of this user id")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only overdue loans")
	return cmd
}

func newLogsCmd(a *app) *cobra.Command {
	var (
		action string
		userID string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the activity log, newest first",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			logs := a.svc.ActivityLogs(activity.Criteria{Action: activity.Action(action), UserID: userID})
			if limit > 0 && len(logs) > limit {
				logs = logs[:limit]
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tUSER\tACTION\tDETAILS")
			for _, l := range logs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					l.Timestamp.Format(time.RFC3339), a.svc.UserName(l.UserID), l.Action, l.Details)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "borrow, return, add_book, edit_book or delete_book")
	cmd.Flags().StringVar(&userID, "user", "", "only entries of this user id")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries, 0 for all")
	return cmd
}

// newRegisterCmd is the only way to create admin accounts.
func newRegisterCmd(a *app) *cobra.Command {
	var (
		email    string
		name     string
		role     string
		password string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a user account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				var err error
				if password, err = readPassword(a.out, "Password: "); err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
			}
			user, err := a.svc.Register(cmd.Context(), email, password, name, membership.Role(role))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Registered %s (%s) as %s\n", user.Email, user.ID, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(membership.RoleMember), "admin or member")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	cmd.MarkFlagRequired("email")
	return cmd
}

func readPassword(out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(out)
	return strings.TrimSpace(string(b)), nil
}
