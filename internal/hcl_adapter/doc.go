// Package hcl_adapter implements config.Loader for HCL files.
//
// Every .hcl file under the given paths is parsed and may contribute any of
// the top-level blocks:
//
//	datasource {
//	  provider  = "bolt"
//	  url       = "blog.db"
//	  pool_size = 4
//	}
//
//	transactions {
//	  max_acquisition = "2s"
//	  valid_for       = "10s"
//	}
//
//	model "User" {
//	  field "id" {
//	    type    = Int
//	    id      = true
//	    default = autoincrement()
//	  }
//	  field "posts" {
//	    type = list(Post)
//	  }
//	}
//
// Field types are bare keywords: a scalar type name (String, Int, Float,
// Boolean, DateTime, UUID, Json) or the name of another model, which makes
// the field a relation. list(T) and optional(T) wrap either. Defaults are
// literal values or one of the generator functions autoincrement() and
// uuid().
package hcl_adapter
