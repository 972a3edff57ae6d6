package signals

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func testPatterns() Patterns {
	return Patterns{
		TransientStateNames: []string{"hover", "focus", "open", "visible"},
		FetchCalls:          []string{"fetch", "axios", "useQuery"},
		SharedStateCalls:    []string{"useSelector", "useDispatch", "useContext"},
		NavigationCalls:     []string{"useNavigate", "navigate"},
		RouteReadCalls:      []string{"useParams", "useRouter"},
		EffectCalls:         []string{"useEffect", "localStorage", "document.cookie"},
	}
}

func TestMaskComments(t *testing.T) {
	src := "const a = 1; // useSelector()\n/* fetch(\n */ const url = 'http://x';\n"
	got := string(MaskComments(context.Background(), "x.tsx", []byte(src)))

	if len(got) != len(src) {
		t.Fatalf("length changed: %d vs %d", len(got), len(src))
	}
	if strings.Contains(got, "useSelector") || strings.Contains(got, "fetch") {
		t.Errorf("comment text survived: %q", got)
	}
	if !strings.Contains(got, "'http://x'") {
		t.Errorf("string literal was masked: %q", got)
	}
	if strings.Count(got, "\n") != strings.Count(src, "\n") {
		t.Error("newlines must be preserved")
	}
}

func TestMaskCommentsText_Template(t *testing.T) {
	src := "const s = `a // b`; // gone\n"
	got := string(maskCommentsText([]byte(src)))
	if !strings.Contains(got, "`a // b`") {
		t.Errorf("template literal altered: %q", got)
	}
	if strings.Contains(got, "gone") {
		t.Errorf("trailing comment kept: %q", got)
	}
}

func TestExtract_Atom(t *testing.T) {
	src := `import React, { useState } from 'react';

export interface ButtonProps { label: string }

export default function Button({ label }: ButtonProps) {
  const [hovered, setHovered] = useState(false);
  const handleClick = () => {};
  return <button onMouseEnter={() => setHovered(true)} onClick={handleClick}>{label}</button>;
}
`
	f := NewExtractor(testPatterns()).Extract(context.Background(), "Button.tsx", []byte(src))

	if !f.HasJSX {
		t.Error("expected JSX")
	}
	if !f.DefaultExport || f.DefaultExportName != "Button" {
		t.Errorf("default export = %v %q", f.DefaultExport, f.DefaultExportName)
	}
	if !reflect.DeepEqual(f.TypeExports, []string{"ButtonProps"}) {
		t.Errorf("TypeExports = %v", f.TypeExports)
	}
	if len(f.BusinessState()) != 0 {
		t.Errorf("hover state should be transient, got %v", f.BusinessState())
	}
	if f.HasBusinessLogic() || len(f.Fetches) != 0 || len(f.SharedState) != 0 {
		t.Errorf("unexpected business signals: %+v", f)
	}
	if f.Handlers != 1 {
		t.Errorf("Handlers = %d, want 1", f.Handlers)
	}
	if !f.HasPrimaryExport("Button") {
		t.Error("expected primary export")
	}
}

func TestExtract_Section(t *testing.T) {
	src := `import { useSelector, useDispatch } from 'react-redux';
import axios from 'axios';

export const OrderList = () => {
  const orders = useSelector(selectOrders);
  const dispatch = useDispatch();
  const [page, setPage] = useState(1);
  useEffect(() => { axios.get('/api/orders'); }, [page]);
  return <ul>{orders.map(o => <li key={o.id}>{o.name}</li>)}</ul>;
};
`
	f := NewExtractor(testPatterns()).Extract(context.Background(), "OrderList.tsx", []byte(src))

	if !reflect.DeepEqual(f.SharedState, []string{"useDispatch", "useSelector"}) {
		t.Errorf("SharedState = %v", f.SharedState)
	}
	if !reflect.DeepEqual(f.Fetches, []string{"axios"}) {
		t.Errorf("Fetches = %v", f.Fetches)
	}
	if !reflect.DeepEqual(f.Effects, []string{"useEffect"}) {
		t.Errorf("Effects = %v", f.Effects)
	}
	if !reflect.DeepEqual(f.BusinessState(), []string{"page"}) {
		t.Errorf("BusinessState = %v", f.BusinessState())
	}
	if f.DefaultExport {
		t.Error("no default export expected")
	}
	if !f.HasPrimaryExport("OrderList") {
		t.Error("named export should count as primary")
	}
}

func TestExtract_IgnoresCommentedCalls(t *testing.T) {
	src := "// const data = useQuery('x')\nexport const Label = () => <span />;\n"
	f := NewExtractor(testPatterns()).Extract(context.Background(), "Label.tsx", []byte(src))
	if len(f.Fetches) != 0 {
		t.Errorf("commented call counted: %v", f.Fetches)
	}
}

func TestExtract_NavigationAndSlot(t *testing.T) {
	src := `export default function ProfileLayout({ children }: { children: React.ReactNode }) {
  const { id } = useParams();
  router.push('/home');
  return <main>{children}</main>;
}
`
	f := NewExtractor(testPatterns()).Extract(context.Background(), "ProfileLayout.tsx", []byte(src))
	if !f.ContentSlot {
		t.Error("expected content slot")
	}
	if !reflect.DeepEqual(f.Navigation, []string{"router.push"}) {
		t.Errorf("Navigation = %v", f.Navigation)
	}
	if !reflect.DeepEqual(f.RouteReads, []string{"useParams"}) {
		t.Errorf("RouteReads = %v", f.RouteReads)
	}
}

func TestParseExports(t *testing.T) {
	text := `export { default as Button } from './Button';
export { Card, type CardProps } from './Card';
export type { Theme } from './theme';
const Local = 1;
export { Local as Renamed };
export default Local;
`
	name, hasDefault, values, types := ParseExports(text)
	if !hasDefault || name != "Local" {
		t.Errorf("default = %v %q", hasDefault, name)
	}
	if !reflect.DeepEqual(values, []string{"Button", "Card", "Renamed"}) {
		t.Errorf("values = %v", values)
	}
	if !reflect.DeepEqual(types, []string{"CardProps", "Theme"}) {
		t.Errorf("types = %v", types)
	}
}
