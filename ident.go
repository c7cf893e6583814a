package mqlite

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// 客户端标识符生成: 前缀@主机名_系统运行秒数。
// 同一台机器上的多次启动靠uptime区分; 读不到/proc/uptime时
// 用墙钟秒数代替。
const clientIDPrefix = "MQLite"

// UniqueClientID 生成本机唯一的客户端标识符。
func UniqueClientID() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s@%s_%d", clientIDPrefix, hostname, uptimeSeconds()), nil
}

// uptimeSeconds 系统运行秒数。Linux读/proc/uptime，
// 其他平台退回unix秒。
func uptimeSeconds() int64 {
	if b, err := os.ReadFile("/proc/uptime"); err == nil {
		if fields := strings.Fields(string(b)); len(fields) > 0 {
			if up, err := strconv.ParseFloat(fields[0], 64); err == nil {
				return int64(up)
			}
		}
	}
	return time.Now().Unix()
}
