/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and exit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dbchat v%s\n", version)
	},
}
