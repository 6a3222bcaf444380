package pdf

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"pdf-layer-service/internal/domain"
)

// Form types reported in the document info.
const (
	FormNone     = "none"
	FormAcroForm = "acroform"
	FormXFA      = "xfa"
)

// maxTreeDepth bounds name and number tree walks on malformed documents.
const maxTreeDepth = 32

// catalogInfo reads the catalog and info dictionary. The outline is added
// from MuPDF by the caller.
func catalogInfo(ctx *model.Context) (domain.DocumentInfo, error) {
	obj := objects{ctx: ctx}
	info := domain.DocumentInfo{
		Version:  ctx.VersionString(),
		FormType: FormNone,
		PageMode: "UseNone",
	}

	root, err := ctx.Catalog()
	if err != nil {
		return info, err
	}

	if form := obj.dict(obj.entry(root, "AcroForm")); form != nil {
		info.FormType = FormAcroForm
		if _, ok := form.Find("XFA"); ok {
			info.FormType = FormXFA
		}
	}
	if mode := obj.name(obj.entry(root, "PageMode")); mode != "" {
		info.PageMode = mode
	}
	info.IsTagged = obj.boolean(obj.entry(obj.dict(obj.entry(root, "MarkInfo")), "Marked"))

	names := obj.dict(obj.entry(root, "Names"))
	if files := obj.dict(obj.entry(names, "EmbeddedFiles")); files != nil {
		info.AttachmentCount = countNameTree(obj, files, 0)
	}

	if labels := obj.dict(obj.entry(root, "PageLabels")); labels != nil {
		info.PageLabels = pageLabels(obj, labels, ctx.PageCount)
	}
	if ctx.Info != nil {
		info.Meta = documentMeta(obj, obj.dict(*ctx.Info))
	}
	return info, nil
}

// infoKeys are the info dictionary entries copied into the document metadata.
var infoKeys = []string{
	"Title", "Author", "Subject", "Keywords",
	"Creator", "Producer", "CreationDate", "ModDate",
}

// documentMeta returns the non-empty text entries of the info dictionary.
func documentMeta(obj objects, d types.Dict) map[string]string {
	if d == nil {
		return nil
	}
	meta := make(map[string]string)
	for _, key := range infoKeys {
		v := strings.TrimSpace(strings.ReplaceAll(obj.text(obj.entry(d, key)), "\x00", ""))
		if v != "" {
			meta[key] = v
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func countNameTree(obj objects, node types.Dict, depth int) int {
	if depth > maxTreeDepth {
		return 0
	}
	n := len(obj.array(obj.entry(node, "Names"))) / 2
	for _, kid := range obj.array(obj.entry(node, "Kids")) {
		n += countNameTree(obj, obj.dict(kid), depth+1)
	}
	return n
}

// labelRange is one entry of the /PageLabels number tree.
type labelRange struct {
	start  int
	style  string
	prefix string
	first  int
}

func collectLabelRanges(obj objects, node types.Dict, depth int, out *[]labelRange) {
	if depth > maxTreeDepth {
		return
	}
	nums := obj.array(obj.entry(node, "Nums"))
	for i := 0; i+1 < len(nums); i += 2 {
		start, ok := obj.number(nums[i])
		if !ok {
			continue
		}
		d := obj.dict(nums[i+1])
		r := labelRange{start: int(start), first: 1}
		r.style = obj.name(obj.entry(d, "S"))
		r.prefix = obj.text(obj.entry(d, "P"))
		if st, ok := obj.number(obj.entry(d, "St")); ok && st >= 1 {
			r.first = int(st)
		}
		*out = append(*out, r)
	}
	for _, kid := range obj.array(obj.entry(node, "Kids")) {
		collectLabelRanges(obj, obj.dict(kid), depth+1, out)
	}
}

// pageLabels returns the non-empty page labels in page order, or nil when
// there are none.
func pageLabels(obj objects, tree types.Dict, pageCount int) []string {
	var ranges []labelRange
	collectLabelRanges(obj, tree, 0, &ranges)
	if len(ranges) == 0 {
		return nil
	}
	sort.SliceStable(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })

	var labels []string
	for page := 0; page < pageCount; page++ {
		idx := sort.Search(len(ranges), func(i int) bool { return ranges[i].start > page }) - 1
		if idx < 0 {
			continue
		}
		r := ranges[idx]
		if label := r.prefix + formatLabel(r.style, r.first+page-r.start); label != "" {
			labels = append(labels, label)
		}
	}
	return labels
}

func formatLabel(style string, n int) string {
	switch style {
	case "D":
		return strconv.Itoa(n)
	case "R":
		return roman(n)
	case "r":
		return strings.ToLower(roman(n))
	case "A":
		return letters(n)
	case "a":
		return strings.ToLower(letters(n))
	}
	return ""
}

func roman(n int) string {
	if n <= 0 {
		return strconv.Itoa(n)
	}
	values := []int{1000, 900, 500, 400, 100, 90, 50, 40, 10, 9, 5, 4, 1}
	symbols := []string{"M", "CM", "D", "CD", "C", "XC", "L", "XL", "X", "IX", "V", "IV", "I"}
	var sb strings.Builder
	for i, v := range values {
		for n >= v {
			sb.WriteString(symbols[i])
			n -= v
		}
	}
	return sb.String()
}

// letters renders 1..26 as A..Z, 27..52 as AA..ZZ and so on.
func letters(n int) string {
	if n <= 0 {
		return strconv.Itoa(n)
	}
	ch := byte('A' + (n-1)%26)
	return strings.Repeat(string(ch), (n-1)/26+1)
}
