package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	taskProjectID int64
	taskTitle     string
	taskMinutes   int
	projectTitle  string
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Manage tasks",
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage projects",
}

func init() {
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksCreateCmd)
	tasksCmd.AddCommand(tasksCompleteCmd)

	tasksListCmd.Flags().Int64Var(&taskProjectID, "project", 0, "project id (required)")
	tasksCreateCmd.Flags().Int64Var(&taskProjectID, "project", 0, "project id (required)")
	tasksCreateCmd.Flags().StringVar(&taskTitle, "title", "", "task title (required)")
	tasksCreateCmd.Flags().IntVar(&taskMinutes, "minutes", 0, "estimated minutes")

	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsCreateCmd)
	projectsCreateCmd.Flags().StringVar(&projectTitle, "title", "", "project title (required)")
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks in a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		if taskProjectID <= 0 {
			return fmt.Errorf("--project is required")
		}
		var tasks []map[string]any
		path := "/api/v1/tasks?project_id=" + strconv.FormatInt(taskProjectID, 10)
		if err := doRequest(http.MethodGet, path, nil, &tasks); err != nil {
			return err
		}
		return printJSON(tasks)
	},
}

var tasksCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task",
	RunE: func(cmd *cobra.Command, args []string) error {
		if taskProjectID <= 0 || taskTitle == "" {
			return fmt.Errorf("--project and --title are required")
		}
		body := map[string]any{
			"project_id": taskProjectID,
			"title":      taskTitle,
		}
		if taskMinutes > 0 {
			body["estimated_minutes"] = taskMinutes
		}
		var created map[string]any
		if err := doRequest(http.MethodPost, "/api/v1/tasks", body, &created); err != nil {
			return err
		}
		return printJSON(created)
	},
}

var tasksCompleteCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var done map[string]any
		if err := doRequest(http.MethodPut, "/api/v1/tasks/"+args[0]+"/complete", nil, &done); err != nil {
			return err
		}
		return printJSON(done)
	},
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		var projects []map[string]any
		if err := doRequest(http.MethodGet, "/api/v1/projects", nil, &projects); err != nil {
			return err
		}
		return printJSON(projects)
	},
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		if projectTitle == "" {
			return fmt.Errorf("--title is required")
		}
		var created map[string]any
		if err := doRequest(http.MethodPost, "/api/v1/projects",
			map[string]string{"title": projectTitle}, &created); err != nil {
			return err
		}
		return printJSON(created)
	},
}
