// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package utils

import (
	"fmt"
	"strings"
)

// EnsureList 将模型自由文本输出规整为字符串列表：
//   - nil 返回空列表
//   - []string 原样返回，[]interface{} 逐项转为字符串
//   - string 按行拆分，去掉每行开头的 "-" 标记，忽略空行
//   - 其他标量包装为单元素列表
func EnsureList(v interface{}) []string {
	switch val := v.(type) {
	case nil:
		return []string{}
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return splitLines(val)
	default:
		return []string{fmt.Sprint(val)}
	}
}

func splitLines(s string) []string {
	out := []string{}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "-"))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
