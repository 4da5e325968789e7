package vnavmap

import "go.viam.com/rdk/resource"

var NamespaceFamily = resource.NewModelFamily("erh", "vnavmap")
