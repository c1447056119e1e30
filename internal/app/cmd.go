package app

import (
	"fmt"
	"strconv"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandCleanup は期限切れリフレッシュトークンの一括削除を1回実行することを示す。
	CommandCleanup Command = "cleanup"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "cleanup":
		return CommandCleanup
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}

// ParseRollbackSteps はmigrateサブコマンドの引数から巻き戻す件数を返す。
// 0は未適用マイグレーションをすべて適用することを示す。
//
//	migrate           → 0
//	migrate up        → 0
//	migrate down      → 1
//	migrate down 3    → 3
func ParseRollbackSteps(args []string) (int, error) {
	if len(args) == 0 || args[0] == "up" {
		return 0, nil
	}
	if args[0] != "down" {
		return 0, fmt.Errorf("unknown migrate direction: %q", args[0])
	}
	if len(args) == 1 {
		return 1, nil
	}

	steps, err := strconv.Atoi(args[1])
	if err != nil || steps <= 0 {
		return 0, fmt.Errorf("invalid rollback steps: %q", args[1])
	}
	return steps, nil
}
