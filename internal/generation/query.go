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

package generation

import (
	"fmt"
	"strings"
)

const productQueryPrefix = "detailed technical characteristics of %s including specifications, price, warranty, benefits and customer reviews"

// ProductQuery 自改进管线检索客户资料所用的通用查询
func ProductQuery(p Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, productQueryPrefix, p.Name)
	if len(p.Keywords) > 0 {
		b.WriteString(" about ")
		b.WriteString(joinKeywords(p.Keywords, 3))
	}
	if desc := []rune(p.Description); len(desc) > 10 {
		if len(desc) > 100 {
			desc = desc[:100]
		}
		b.WriteString(" ")
		b.WriteString(string(desc))
	}
	return b.String()
}
