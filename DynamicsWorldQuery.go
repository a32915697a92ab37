package velcro

// QueryAABB calls callback for every fixture whose fat AABB overlaps aabb.
// The results are conservative; test the fixture shapes for exact
// overlap.
func (w *World) QueryAABB(callback QueryCallback, aabb AABB) {
	broadPhase := w.contactManager.broadPhase
	broadPhase.Query(func(proxyID int) bool {
		proxy := broadPhase.UserData(proxyID).(*FixtureProxy)
		return callback(proxy.Fixture)
	}, aabb)
}

// RayCast casts a ray from point1 to point2 and calls callback for every
// fixture child it hits, in no particular order. The return value of the
// callback clips, continues or stops the ray.
func (w *World) RayCast(callback RayCastCallback, point1, point2 Vec2) {
	if point1 == point2 {
		return
	}

	broadPhase := w.contactManager.broadPhase
	input := RayCastInput{P1: point1, P2: point2, MaxFraction: 1.0}

	broadPhase.RayCast(func(input RayCastInput, proxyID int) float64 {
		proxy := broadPhase.UserData(proxyID).(*FixtureProxy)
		fixture := proxy.Fixture

		output, hit := fixture.RayCast(input, proxy.ChildIndex)
		if !hit {
			return input.MaxFraction
		}

		fraction := output.Fraction
		point := input.P1.Mul(1.0 - fraction).Add(input.P2.Mul(fraction))
		return callback(fixture, point, output.Normal, fraction)
	}, input)
}

// TestPoint returns the fixtures that contain the world point p.
func (w *World) TestPoint(p Vec2) []*Fixture {
	d := Vec2{epsilon, epsilon}
	aabb := AABB{LowerBound: p.Sub(d), UpperBound: p.Add(d)}

	var fixtures []*Fixture
	w.QueryAABB(func(f *Fixture) bool {
		if f.TestPoint(p) {
			fixtures = append(fixtures, f)
		}
		return true
	}, aabb)
	return fixtures
}
