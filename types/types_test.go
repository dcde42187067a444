package types

import "testing"

func TestAABBExpand(t *testing.T) {
	box := EmptyAABB()
	if !box.IsEmpty() {
		t.Fatal("expected new box to be empty")
	}

	box = box.Expand(Vec3{1, 2, 3})
	if box.IsEmpty() {
		t.Fatal("expected box with a single point not to be empty")
	}
	if box.Min != box.Max || box.Min != (Vec3{1, 2, 3}) {
		t.Fatalf("expected degenerate box at (1, 2, 3); got %v", box)
	}

	box = box.Expand(Vec3{-1, 5, 3})
	expBox := AABB{Min: Vec3{-1, 2, 3}, Max: Vec3{1, 5, 3}}
	if box != expBox {
		t.Fatalf("expected box to be %v; got %v", expBox, box)
	}
}

func TestAABBUnion(t *testing.T) {
	a := AABB{Min: Vec3{0, 0, 0}, Max: Vec3{1, 1, 1}}
	b := AABB{Min: Vec3{-2, 0.5, 0}, Max: Vec3{0, 3, 0.5}}

	expBox := AABB{Min: Vec3{-2, 0, 0}, Max: Vec3{1, 3, 1}}
	if out := a.Union(b); out != expBox {
		t.Fatalf("expected union to be %v; got %v", expBox, out)
	}

	if out := EmptyAABB().Union(a); out != a {
		t.Fatalf("expected union with empty box to be %v; got %v", a, out)
	}
}

func TestAABBMaxExtent(t *testing.T) {
	specs := []struct {
		box     AABB
		expAxis int
	}{
		{AABB{Max: Vec3{3, 1, 1}}, 0},
		{AABB{Max: Vec3{1, 3, 1}}, 1},
		{AABB{Max: Vec3{1, 1, 3}}, 2},
		{AABB{Max: Vec3{2, 2, 2}}, 0},
		{AABB{Max: Vec3{1, 2, 2}}, 1},
	}

	for index, spec := range specs {
		if axis := spec.box.MaxExtent(); axis != spec.expAxis {
			t.Fatalf("[spec %d] expected max extent axis %d; got %d", index, spec.expAxis, axis)
		}
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	if out := (Vec3{}).Normalize(); out != (Vec3{}) {
		t.Fatalf("expected zero vector; got %v", out)
	}

	out := Vec3{0, 3, 4}.Normalize()
	if l := out.Len(); l < 0.9999 || l > 1.0001 {
		t.Fatalf("expected unit vector; got length %f", l)
	}
}

func TestRotateEuler4(t *testing.T) {
	// A 90 degree rotation around Z maps X to Y and Y to -X
	expRz := Mat4{
		0, 1, 0, 0,
		-1, 0, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	if m := RotateEuler4(Vec3{0, 0, 90}); !m.ApproxEqual(expRz, 1e-6) {
		t.Fatalf("expected rotation matrix\n%v\ngot\n%v", expRz, m)
	}

	// Rx(90) * Rz(90)
	expRxRz := Mat4{
		0, 0, 1, 0,
		-1, 0, 0, 0,
		0, -1, 0, 0,
		0, 0, 0, 1,
	}
	if m := RotateEuler4(Vec3{90, 0, 90}); !m.ApproxEqual(expRxRz, 1e-6) {
		t.Fatalf("expected rotation matrix\n%v\ngot\n%v", expRxRz, m)
	}
}

func TestApproxEqualNearZero(t *testing.T) {
	m := Ident4()
	m[1] = 2.4e-7
	m[14] = -2.4e-7
	if !m.ApproxEqual(Ident4(), 1e-5) {
		t.Fatal("expected matrices with tiny off-diagonal error to compare equal")
	}

	m[1] = 1e-3
	if m.ApproxEqual(Ident4(), 1e-5) {
		t.Fatal("expected matrices to differ")
	}
}

func TestMatrixInverseWithRotation(t *testing.T) {
	m := Translate4(Vec3{1, 2, 3}).Mul4(RotateEuler4(Vec3{30, 45, 60})).Mul4(Scale4(Vec3{2, 3, 4}))
	if !m.Mul4(m.Inv()).ApproxEqual(Ident4(), 1e-5) {
		t.Fatal("expected m * inv(m) to be the identity matrix")
	}
}

func TestMatrixInverse(t *testing.T) {
	m := Translate4(Vec3{1, 2, 3}).Mul4(Scale4(Vec3{2, 2, 2}))
	if !m.Mul4(m.Inv()).ApproxEqual(Ident4(), 1e-5) {
		t.Fatal("expected m * inv(m) to be the identity matrix")
	}
}
