package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"
)

// previewCmd requests a decomposition proposal for a task.
var previewCmd = &cobra.Command{
	Use:   "preview <task-id>",
	Short: "Preview an AI-generated split of a task into subtasks",
	Long: `Preview an AI-generated split of a task into subtasks.

The proposal is held by the server for a limited time; use its id with
"decomp execute" to commit the split or "decomp cancel" to discard it.

Examples:
  decomp preview 42
  decomp preview --server http://localhost:9000 42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}

		var proposal map[string]any
		if err := doRequest(http.MethodPost, "/api/v1/agent/preview",
			map[string]int64{"task_id": taskID}, &proposal); err != nil {
			return err
		}
		return printJSON(proposal)
	},
}

// executeCmd commits a pending proposal.
var executeCmd = &cobra.Command{
	Use:   "execute <proposal-id>",
	Short: "Execute a pending proposal, replacing the task with its subtasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var result map[string]any
		if err := doRequest(http.MethodPost, "/api/v1/agent/execute/"+args[0], nil, &result); err != nil {
			return err
		}
		return printJSON(result)
	},
}

// cancelCmd discards a pending proposal.
var cancelCmd = &cobra.Command{
	Use:   "cancel <proposal-id>",
	Short: "Cancel a pending proposal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doRequest(http.MethodDelete, "/api/v1/agent/preview/"+args[0], nil, nil); err != nil {
			return err
		}
		fmt.Println("Proposal cancelled")
		return nil
	},
}

// proposalCmd shows a proposal in any state.
var proposalCmd = &cobra.Command{
	Use:   "proposal <proposal-id>",
	Short: "Show a proposal, including executed, cancelled, or expired ones",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var proposal map[string]any
		if err := doRequest(http.MethodGet, "/api/v1/agent/proposals/"+args[0], nil, &proposal); err != nil {
			return err
		}
		return printJSON(proposal)
	},
}

// statusCmd shows the decomposition service status.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show decomposition service status",
	RunE: func(cmd *cobra.Command, args []string) error {
		var status struct {
			AIHealthy       bool   `json:"ai_healthy"`
			Model           string `json:"model"`
			ActiveProposals int    `json:"active_proposals"`
		}
		if err := doRequest(http.MethodGet, "/api/v1/agent/status", nil, &status); err != nil {
			return err
		}
		fmt.Printf("AI Healthy:       %v\n", status.AIHealthy)
		fmt.Printf("Model:            %s\n", status.Model)
		fmt.Printf("Active Proposals: %d\n", status.ActiveProposals)
		return nil
	},
}
