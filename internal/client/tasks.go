package client

import (
	"context"
	"fmt"
	"time"

	"github.com/appliance-io/mgmtapi/internal/constants"
	"github.com/appliance-io/mgmtapi/pkg/mgmtapi"
)

// WaitForTask polls the task entity at href until it reaches the terminal
// state, or the context/poll timeout expires. A finished task whose status
// reports an error yields ErrTaskFailed with the task's message.
func (c *Client) WaitForTask(ctx context.Context, href string) (mgmtapi.Entity, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultTaskPollTimeout)
	defer cancel()

	task := newStubEntity(c.collectionOrAdHoc("tasks"), href, href)

	ticker := time.NewTicker(constants.DefaultTaskPollInterval)
	defer ticker.Stop()

	for {
		err := task.Reload(ctx)
		if err != nil {
			return nil, fmt.Errorf("polling task: %w", err)
		}

		state, _ := task.fields["state"].(string)
		if state == constants.TaskStateFinished {
			status, _ := task.fields["status"].(string)
			if status == constants.TaskStatusError {
				message, _ := task.fields["message"].(string)

				return task, fmt.Errorf("%w: %s", mgmtapi.ErrTaskFailed, message)
			}

			return task, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for task %s: %w", href, ctx.Err())
		case <-ticker.C:
		}
	}
}
