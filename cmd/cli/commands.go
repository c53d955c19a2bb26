package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/iho/bankledger/internal/adapter/http/dto"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func accountCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account operations",
	}

	var openReq dto.OpenAccountRequest
	openCmd := &cobra.Command{
		Use:   "open",
		Short: "Open an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out dto.AccountResponse
			if err := newClient(opts).do(cmd.Context(), http.MethodPost, "/api/v1/accounts", openReq, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	openCmd.Flags().StringVar(&openReq.OwnerID, "owner", "", "Owner id")
	openCmd.Flags().StringVar(&openReq.Currency, "currency", "", "ISO 4217 currency (server default when empty)")
	openCmd.Flags().StringVar(&openReq.AccountNumber, "number", "", "Account number (generated when empty)")
	_ = openCmd.MarkFlagRequired("owner")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out dto.AccountResponse
			if err := newClient(opts).do(cmd.Context(), http.MethodGet, "/api/v1/accounts/"+url.PathEscape(args[0]), nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	var owner string
	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if owner != "" {
				q.Set("owner_id", owner)
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if offset > 0 {
				q.Set("offset", strconv.Itoa(offset))
			}

			var out dto.ListAccountsResponse
			if err := newClient(opts).do(cmd.Context(), http.MethodGet, "/api/v1/accounts?"+q.Encode(), nil, &out); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tOWNER\tNUMBER\tBALANCE\tSTATUS")
			for _, acc := range out.Accounts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%s\n",
					acc.ID, truncate(acc.OwnerID, 24), acc.AccountNumber, acc.Balance.StringFixed(2), acc.Currency, acc.Status)
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().StringVar(&owner, "owner", "", "Only accounts of this owner")
	listCmd.Flags().IntVar(&limit, "limit", 0, "Page size")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Page offset")

	var stmtLimit int
	var cursor string
	statementCmd := &cobra.Command{
		Use:   "statement <id>",
		Short: "Show an account statement, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if stmtLimit > 0 {
				q.Set("limit", strconv.Itoa(stmtLimit))
			}
			if cursor != "" {
				q.Set("cursor", cursor)
			}

			var out dto.StatementResponse
			path := "/api/v1/accounts/" + url.PathEscape(args[0]) + "/statement?" + q.Encode()
			if err := newClient(opts).do(cmd.Context(), http.MethodGet, path, nil, &out); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tID\tTYPE\tSTATUS\tAMOUNT\tDESCRIPTION")
			for _, txn := range out.Transactions {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					txn.CreatedAt.Format("2006-01-02 15:04:05"), txn.ID, txn.Type, txn.Status,
					txn.Amount.StringFixed(2), truncate(txn.Description, 32))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if out.NextCursor != "" {
				fmt.Fprintf(w, "\nnext cursor: %s\n", out.NextCursor)
			}
			return nil
		},
	}
	statementCmd.Flags().IntVar(&stmtLimit, "limit", 0, "Page size")
	statementCmd.Flags().StringVar(&cursor, "cursor", "", "Cursor from a previous page")

	cmd.AddCommand(openCmd, getCmd, listCmd, statementCmd,
		accountViewCmd(opts, "audit", "Show the lifecycle audit trail of an account", func() any { return &[]dto.AuditLogResponse{} }),
		accountViewCmd(opts, "events", "Show events raised for an account", func() any { return &[]dto.EventResponse{} }),
	)
	for _, action := range []string{"freeze", "unfreeze", "close"} {
		cmd.AddCommand(statusCmd(opts, action))
	}

	return cmd
}

// accountViewCmd prints GET /accounts/{id}/<name> as JSON.
func accountViewCmd(opts *options, name, short string, newOut func() any) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newOut()
			path := "/api/v1/accounts/" + url.PathEscape(args[0]) + "/" + name
			if err := newClient(opts).do(cmd.Context(), http.MethodGet, path, nil, out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func statusCmd(opts *options, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: "Change account status: " + action,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out dto.AccountResponse
			path := "/api/v1/accounts/" + url.PathEscape(args[0]) + "/" + action
			if err := newClient(opts).do(cmd.Context(), http.MethodPost, path, nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

// moneyFlags binds the fields every money movement request carries.
func moneyFlags(cmd *cobra.Command, req *dto.MoneyRequest) {
	cmd.Flags().StringVar(&req.Amount, "amount", "", "Amount, e.g. 10.50")
	cmd.Flags().StringVar(&req.IdempotencyKey, "key", "", "Idempotency key (generated when empty)")
	cmd.Flags().StringVar(&req.Category, "category", "", "Category")
	cmd.Flags().StringVar(&req.Description, "description", "", "Description")
	_ = cmd.MarkFlagRequired("amount")
}

// submit posts a money movement. The key used is echoed to stderr so a
// timed out request can be retried safely.
func submit(cmd *cobra.Command, opts *options, path string, money *dto.MoneyRequest, body any) error {
	if money.IdempotencyKey == "" {
		money.IdempotencyKey = ulid.Make().String()
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "idempotency key: %s\n", money.IdempotencyKey)

	var out dto.TransactionResponse
	err := newClient(opts).do(cmd.Context(), http.MethodPost, path, body, &out)

	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Body.Transaction != nil {
		if perr := printJSON(cmd.OutOrStdout(), apiErr.Body.Transaction); perr != nil {
			return perr
		}
	}
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), out)
}

func transferCmd(opts *options) *cobra.Command {
	var req dto.TransferRequest
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move money between two accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(cmd, opts, "/api/v1/transfers", &req.MoneyRequest, &req)
		},
	}
	cmd.Flags().StringVar(&req.SourceAccountID, "from", "", "Source account id")
	cmd.Flags().StringVar(&req.Destination, "to", "", "Destination account id, number or owner")
	moneyFlags(cmd, &req.MoneyRequest)
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func paymentCmd(opts *options) *cobra.Command {
	var req dto.PaymentRequest
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Pay a payee, internal or external",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(cmd, opts, "/api/v1/payments", &req.MoneyRequest, &req)
		},
	}
	cmd.Flags().StringVar(&req.SourceAccountID, "from", "", "Source account id")
	cmd.Flags().StringVar(&req.Payee, "payee", "", "Payee reference")
	moneyFlags(cmd, &req.MoneyRequest)
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("payee")
	return cmd
}

func depositCmd(opts *options) *cobra.Command {
	var req dto.DepositRequest
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Credit an account from outside the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(cmd, opts, "/api/v1/deposits", &req.MoneyRequest, &req)
		},
	}
	cmd.Flags().StringVar(&req.AccountID, "account", "", "Account id")
	moneyFlags(cmd, &req.MoneyRequest)
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func withdrawCmd(opts *options) *cobra.Command {
	var req dto.WithdrawRequest
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Debit an account to outside the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(cmd, opts, "/api/v1/withdrawals", &req.MoneyRequest, &req)
		},
	}
	cmd.Flags().StringVar(&req.AccountID, "account", "", "Account id")
	moneyFlags(cmd, &req.MoneyRequest)
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func transactionCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transaction",
		Aliases: []string{"tx"},
		Short:   "Transaction lookups",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out dto.TransactionResponse
			if err := newClient(opts).do(cmd.Context(), http.MethodGet, "/api/v1/transactions/"+url.PathEscape(args[0]), nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	})

	return cmd
}

func ledgerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	consistencyCmd := &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out dto.LedgerConsistencyResponse
			err := newClient(opts).do(cmd.Context(), http.MethodGet, "/api/v1/ledger/consistency", nil, &out)

			// An inconsistent ledger answers 409 with the totals.
			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
				if jerr := json.Unmarshal(apiErr.Raw, &out); jerr != nil {
					return err
				}
				printTotals(cmd.OutOrStdout(), out)
				return fmt.Errorf("consistency check FAILED")
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Consistency check PASSED")
			printTotals(cmd.OutOrStdout(), out)
			return nil
		},
	}

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile every account against its transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out dto.ReconciliationReportResponse
			if err := newClient(opts).do(cmd.Context(), http.MethodGet, "/api/v1/ledger/reconciliation", nil, &out); err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if len(out.Discrepancies) > 0 {
				return fmt.Errorf("%d of %d accounts do not reconcile", len(out.Discrepancies), out.TotalAccounts)
			}
			return nil
		},
	}

	cmd.AddCommand(consistencyCmd, reconcileCmd)
	return cmd
}

func printTotals(w io.Writer, out dto.LedgerConsistencyResponse) {
	fmt.Fprintf(w, "Total balance:     %s\n", out.TotalBalance.StringFixed(2))
	fmt.Fprintf(w, "Net external flow: %s\n", out.NetExternalFlow.StringFixed(2))
}
