package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"labdb.org/labgate/internal/directory"
)

// ErrMalformedQuery は検索語が解釈できない（閉じていない正規表現等）。
var ErrMalformedQuery = errors.New("search: malformed query")

// Result は検索結果1件。種別名とレコードIDの組。
type Result struct {
	// Kind はレコード種別名。
	Kind string
	// ID はレコードの識別子。
	ID int
}

// MarshalJSON は結果を ["Kind", id] 形式の2要素配列として出力する。
// バックエンドの /search_result が期待するワイヤ形式。
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Kind, r.ID})
}

// Search は指定された種別群に対して検索語を照合し、一致したレコードの
// 種別とIDを返す。person が指定された場合は所有者フィールドの一致検索に
// 切り替わり、検索語の照合は行わない。includeSequence が真のときは
// 配列フィールドも照合対象に含める。未知の種別名はエラー。
func Search(ctx context.Context, dir *directory.Directory, term string, includeSequence bool, person string, types []string) ([]Result, error) {
	re, err := compileTerm(term)
	if err != nil {
		return nil, err
	}

	results := []Result{}
	for _, t := range types {
		desc, ok := directory.Lookup(t)
		if !ok {
			return nil, fmt.Errorf("未知のレコード種別 %q: %w", t, ErrMalformedQuery)
		}

		if person != "" {
			owned, err := dir.ResourcesByOwner(ctx, desc, person)
			if err != nil {
				return nil, err
			}
			for _, r := range owned {
				results = append(results, Result{Kind: r.Kind, ID: r.ID})
			}
			continue
		}

		all, err := dir.AllResources(ctx, desc)
		if err != nil {
			return nil, err
		}
		for _, r := range all {
			if re.MatchString(r.Name) || re.MatchString(r.Description) ||
				(includeSequence && desc.HasSequence() && re.MatchString(r.Sequence)) {
				results = append(results, Result{Kind: r.Kind, ID: r.ID})
			}
		}
	}
	return results, nil
}

// compileTerm は検索語を正規表現にコンパイルする。
// `/re/` は素の正規表現、`/re/i` は大文字小文字を無視する正規表現、
// それ以外は `*` をワイルドカードとする前後アンカー付きのグロブとして扱う。
// `/` で始まるが閉じていない語は不正。
func compileTerm(term string) (*regexp.Regexp, error) {
	if term == "" {
		return nil, fmt.Errorf("検索語が空です: %w", ErrMalformedQuery)
	}

	normTerm := term
	caseInsensitive := false
	if strings.HasPrefix(normTerm, "/") {
		switch {
		case strings.HasSuffix(normTerm, "/i") && len(normTerm) > 3:
			caseInsensitive = true
			normTerm = normTerm[1 : len(normTerm)-2]
		case strings.HasSuffix(normTerm, "/") && len(normTerm) > 2:
			normTerm = normTerm[1 : len(normTerm)-1]
		default:
			return nil, fmt.Errorf("正規表現が閉じていません: %w", ErrMalformedQuery)
		}
	} else {
		normTerm = "^" + strings.ReplaceAll(normTerm, "*", ".*") + "$"
	}
	if caseInsensitive {
		normTerm = "(?i)" + normTerm
	}

	re, err := regexp.Compile(normTerm)
	if err != nil {
		return nil, fmt.Errorf("正規表現のコンパイルに失敗 (%v): %w", err, ErrMalformedQuery)
	}
	return re, nil
}
